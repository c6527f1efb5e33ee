package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"basicd/pkg/event"
	"basicd/services/basic/internal/eliza"
)

type helloRequest struct {
	Message string `json:"message"`
}

type helloPayload struct {
	Greeting string `json:"greeting"`
}

// handleHello wraps a greeting for the request message in an event
// envelope.
func (a *API) handleHello(w http.ResponseWriter, r *http.Request) {
	var req helloRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	env := a.helloBuilder.Build(event.TypeHello, helloPayload{
		Greeting: "Hello, " + req.Message,
	})
	writeJSON(w, http.StatusOK, env)
}

type talkRequest struct {
	Message string `json:"message"`
}

// handleTalk holds one conversation: the request body is a stream of
// JSON messages, the response a stream of NDJSON replies, one per
// message, flushed as they are produced. The conversation ends on EOF
// or after a goodbye reply.
func (a *API) handleTalk(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	conversation := eliza.New(nil)
	dec := json.NewDecoder(r.Body)
	enc := json.NewEncoder(w)

	for {
		var req talkRequest
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				a.log.Debug().Err(err).Msg("talk request stream ended")
			}
			return
		}

		reply := conversation.Reply(req.Message)
		a.log.Debug().
			Str("in", req.Message).
			Str("out", reply.Text).
			Bool("goodbye", reply.Goodbye).
			Msg("talk")

		if err := enc.Encode(reply); err != nil {
			return
		}
		flusher.Flush()

		if reply.Goodbye {
			return
		}
	}
}
