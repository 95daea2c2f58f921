package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/songboard/songboard/playlist"
	"github.com/songboard/songboard/transport/websocket"
)

// Server is the REST layer over the playlist store. Every successful
// mutation is followed by a broadcast of the new snapshot to the affected
// user's room.
type Server struct {
	store      *playlist.Store
	hub        *websocket.Hub
	catalogDir string
	router     *mux.Router
}

// NewServer creates a new API server. catalogDir is the directory holding
// per-user song catalog files (<userID>.json).
func NewServer(store *playlist.Store, hub *websocket.Hub, catalogDir string) *Server {
	s := &Server{
		store:      store,
		hub:        hub,
		catalogDir: catalogDir,
		router:     mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Song catalog
	api.HandleFunc("/users/{id}/catalog", s.handleGetCatalog).Methods("GET")

	// Playlist settings
	api.HandleFunc("/users/{id}/playlist", s.handleGetPlaylist).Methods("GET")
	api.HandleFunc("/users/{id}/playlist", s.handleUpdatePlaylist).Methods("PUT")

	// Song requests
	api.HandleFunc("/users/{id}/requests", s.handleListRequests).Methods("GET")
	api.HandleFunc("/users/{id}/requests", s.handleCreateRequest).Methods("PUT")
	api.HandleFunc("/users/{id}/requests", s.handleDeleteRequestAt).Methods("DELETE")
	api.HandleFunc("/users/{id}/requests/{songID}", s.handleDeleteRequest).Methods("DELETE")

	// WebSocket, one room per user
	s.router.HandleFunc("/ws/{id}", s.handleWebSocket)

	// Overlay and dashboard assets
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static/")))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// broadcast pushes the user's current snapshot to their room.
func (s *Server) broadcast(userID string) {
	if s.hub != nil {
		s.hub.BroadcastState(userID)
	}
}

// Catalog Handler

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	// The user id becomes a file name; refuse anything that could escape
	// the catalog directory.
	if userID != filepath.Base(userID) || strings.Contains(userID, "..") {
		respondError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	http.ServeFile(w, r, filepath.Join(s.catalogDir, userID+".json"))
}

// Playlist Handlers

func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	respondJSON(w, http.StatusOK, s.store.Get(userID))
}

func (s *Server) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req struct {
		SongRequestsEnabled bool                   `json:"songRequestsEnabled"`
		SongArrangements    []playlist.Arrangement `json:"songArrangements"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot := s.store.Update(userID, req.SongRequestsEnabled, req.SongArrangements)
	s.broadcast(userID)

	respondJSON(w, http.StatusOK, snapshot)
}

// Song Request Handlers

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	respondJSON(w, http.StatusOK, s.store.Get(userID))
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	var req playlist.SongRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SongID == "" {
		respondError(w, http.StatusBadRequest, "songId is required")
		return
	}

	snapshot, added := s.store.AddRequest(userID, req)
	if added {
		s.broadcast(userID)
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleDeleteRequestAt(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	index := 0
	if indexStr := r.URL.Query().Get("index"); indexStr != "" {
		i, err := strconv.Atoi(indexStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid index")
			return
		}
		index = i
	}

	snapshot, removed := s.store.RemoveRequestAt(userID, index)
	if removed {
		s.broadcast(userID)
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["id"]
	songID := vars["songID"]

	snapshot, removed := s.store.RemoveRequestBySong(userID, songID)
	if removed {
		s.broadcast(userID)
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if userID == "" {
		http.Error(w, "user id required", http.StatusBadRequest)
		return
	}

	s.hub.ServeWS(w, r, userID)
}
