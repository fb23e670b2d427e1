package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dyluth/hecto/internal/duel"
	"github.com/dyluth/hecto/internal/puzzle"
	"github.com/dyluth/hecto/internal/scoring"
	"github.com/dyluth/hecto/internal/storage"
)

type createGameRequest struct {
	PlayerID   string `json:"playerId"`
	Variant    string `json:"variant"`
	Difficulty string `json:"difficulty"`
}

type playerRequest struct {
	PlayerID string `json:"playerId"`
}

type moveRequest struct {
	PlayerID string          `json:"playerId"`
	Move     json.RawMessage `json:"move"`
}

type submitRequest struct {
	PlayerID string `json:"playerId"`
	Solution string `json:"solution"`
}

type heartbeatRequest struct {
	PlayerID string `json:"playerId"`
	Draft    string `json:"draft"`
}

type spectatorRequest struct {
	SpectatorID string `json:"spectatorId"`
}

type endRequest struct {
	Winner string `json:"winner"`
}

type checkRequest struct {
	Digits   string `json:"digits"`
	Solution string `json:"solution"`
}

type checkResponse struct {
	Correct bool    `json:"correct"`
	Value   float64 `json:"value"`
	Error   string  `json:"error,omitempty"`
}

type gameResponse struct {
	Game *duel.Match `json:"game"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// decodeBody reads a JSON body into v. An empty body is allowed when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

func requirePlayer(id string) error {
	if strings.TrimSpace(id) == "" {
		return badRequest("playerId is required")
	}
	return nil
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	variant, err := duel.ParseVariant(req.Variant)
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	difficulty, err := puzzle.ParseDifficulty(req.Difficulty)
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}

	m, err := s.deps.Duel.Create(r.Context(), duel.CreateRequest{
		CreatorID:  strings.TrimSpace(req.PlayerID),
		Variant:    variant,
		Difficulty: difficulty,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"gameId": m.ID, "game": m})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.deps.Duel.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Duel.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{Game: m})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requirePlayer(req.PlayerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Duel.Join(r.Context(), mux.Vars(r)["id"], req.PlayerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{Game: m})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requirePlayer(req.PlayerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Duel.Move(r.Context(), mux.Vars(r)["id"], req.PlayerID, req.Move)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{Game: m})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requirePlayer(req.PlayerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Duel.Submit(r.Context(), mux.Vars(r)["id"], req.PlayerID, req.Solution)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requirePlayer(req.PlayerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deps.Duel.Leave(r.Context(), mux.Vars(r)["id"], req.PlayerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "left game"})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deps.Duel.End(r.Context(), mux.Vars(r)["id"], req.Winner); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "game ended"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requirePlayer(req.PlayerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Duel.Heartbeat(r.Context(), mux.Vars(r)["id"], req.PlayerID, req.Draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{Game: m})
}

func (s *Server) handleSpectate(w http.ResponseWriter, r *http.Request) {
	var req spectatorRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.SpectatorID) == "" {
		s.writeError(w, r, badRequest("spectatorId is required"))
		return
	}
	m, err := s.deps.Duel.Spectate(r.Context(), mux.Vars(r)["id"], req.SpectatorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameResponse{Game: m})
}

func (s *Server) handleUnspectate(w http.ResponseWriter, r *http.Request) {
	var req spectatorRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.deps.Duel.Unspectate(r.Context(), mux.Vars(r)["id"], req.SpectatorID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "stopped spectating"})
}

func (s *Server) handleGeneratePuzzle(w http.ResponseWriter, r *http.Request) {
	d, err := puzzle.ParseDifficulty(r.URL.Query().Get("difficulty"))
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	seq, err := s.deps.Generator.Generate(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"puzzle":    seq,
		"timeLimit": int(d.RoundTime().Seconds()),
	})
}

func (s *Server) handleCheckPuzzle(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	digits, err := puzzle.ParseDigits(req.Digits)
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	seq := puzzle.NewSequence(digits, "")
	v, verr := puzzle.Verify(seq, req.Solution)
	resp := checkResponse{Value: v}
	if verr != nil {
		resp.Error = verr.Error()
	} else {
		resp.Correct = puzzle.Matches(v, seq.Target)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	digits, err := puzzle.ParseDigits(r.URL.Query().Get("digits"))
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}
	solution, ok, err := s.deps.Generator.Hint(r.Context(), digits)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no solution found", Code: "NoSolution"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"digits": digits, "solution": solution})
}

func (s *Server) handleRanks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ranks": scoring.Ladder()})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.deps.Profiles.Get(r.Context(), id)
	if storage.IsNotFound(err) {
		p, err = storage.NewProfile(id), nil
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": p,
		"rank":    scoring.Rank(p.Rating),
	})
}
