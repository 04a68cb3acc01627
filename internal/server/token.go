package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
)

// TokenResult carries the Music-User-Token captured by the page.
type TokenResult struct {
	Token string
	err   error
}

func (t *TokenResult) Error() error {
	return t.err
}

// TokenHandler serves a MusicKit JS page that authorizes the user and posts the resulting Music-User-Token back.
//
// Exactly one result is delivered on [TokenHandler.Result]; later posts are rejected.
type TokenHandler struct {
	developerToken string
	appName        string
	resultChan     chan TokenResult
	once           sync.Once
	received       bool
	mu             sync.Mutex
}

// NewTokenHandler creates a handler whose page configures MusicKit with developerToken.
func NewTokenHandler(developerToken, appName string) *TokenHandler {
	return &TokenHandler{
		developerToken: developerToken,
		appName:        appName,
		resultChan:     make(chan TokenResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *TokenHandler) Routes() []string {
	return []string{"GET /{$}", "POST /token"}
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/token":
		h.receive(w, r)
	default:
		h.page(w)
	}
}

func (h *TokenHandler) page(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tokenPage.Execute(w, map[string]string{"DeveloperToken": h.developerToken, "AppName": h.appName}); err != nil {
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

type tokenRequest struct {
	Token string `json:"token"`
	Error string `json:"error,omitempty"`
}

func (h *TokenHandler) receive(w http.ResponseWriter, r *http.Request) {
	var body tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	body.Token = strings.TrimSpace(body.Token)
	if body.Token == "" && body.Error == "" {
		http.Error(w, "Missing token", http.StatusBadRequest)
		return
	}

	h.mu.Lock()
	if h.received {
		h.mu.Unlock()
		http.Error(w, "Token already received", http.StatusConflict)
		return
	}
	h.received = true
	h.mu.Unlock()

	if body.Error != "" {
		h.Send(TokenResult{err: fmt.Errorf("authorization failed: %s", body.Error)})
		w.WriteHeader(http.StatusOK)
		return
	}

	h.Send(TokenResult{Token: body.Token})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// Send delivers result once and closes the channel.
func (h *TokenHandler) Send(result TokenResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the channel that receives exactly one [TokenResult].
func (h *TokenHandler) Result() <-chan TokenResult {
	return h.resultChan
}

var tokenPage = template.Must(template.New("token").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.AppName}}: Apple Music Authorization</title>
    <script src="https://js-cdn.music.apple.com/musickit/v3/musickit.js" data-web-components async></script>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #fa2d48; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0 0 1rem 0; }
        button { font-size: 1rem; padding: 0.5rem 1.5rem; border: 0; border-radius: 6px;
                 background: #fa2d48; color: white; cursor: pointer; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Connect Apple Music</h1>
        <p id="status">Authorize {{.AppName}} to manage your library playlists.</p>
        <button id="authorize">Authorize</button>
    </div>
    <script>
        const status = document.getElementById("status");
        const send = (body) => fetch("/token", {
            method: "POST",
            headers: { "Content-Type": "application/json" },
            body: JSON.stringify(body),
        });

        document.addEventListener("musickitloaded", async () => {
            const music = await MusicKit.configure({
                developerToken: {{.DeveloperToken}},
                app: { name: {{.AppName}}, build: "1.0.0" },
            });

            document.getElementById("authorize").addEventListener("click", async () => {
                try {
                    const token = await music.authorize();
                    await send({ token });
                    status.textContent = "✓ Authorization successful. You can close this window and return to the terminal.";
                } catch (err) {
                    await send({ error: String(err) });
                    status.textContent = "✗ Authorization failed: " + err;
                }
            });
        });
    </script>
</body>
</html>
`))
