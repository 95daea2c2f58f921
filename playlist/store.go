package playlist

import "sync"

// Arrangement identifies an instrument arrangement a song can be played on.
type Arrangement string

const (
	ArrangementLead   Arrangement = "lead"
	ArrangementRhythm Arrangement = "rhythm"
	ArrangementBass   Arrangement = "bass"
	ArrangementDrums  Arrangement = "drums"
	ArrangementVocals Arrangement = "vocals"
)

// DefaultArrangements returns the arrangement filter applied to users that
// have never configured their playlist.
func DefaultArrangements() []Arrangement {
	return []Arrangement{
		ArrangementLead,
		ArrangementRhythm,
		ArrangementBass,
		ArrangementDrums,
		ArrangementVocals,
	}
}

// SongRequest is a single queued request. SongID refers to an entry in the
// user's song catalog; title and artist are carried for display only.
type SongRequest struct {
	SongID string `json:"songId"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// Playlist is the request state for one user.
type Playlist struct {
	SongRequestsEnabled bool          `json:"songRequestsEnabled"`
	SongArrangements    []Arrangement `json:"songArrangements"`
	SongRequests        []SongRequest `json:"songRequests"`
}

// Store holds the playlist state for all users. It is safe for concurrent
// use; every accessor returns a copy, so callers never observe a playlist
// mid-mutation.
type Store struct {
	playlists map[string]*Playlist
	mu        sync.RWMutex
}

// NewStore creates an empty playlist store.
func NewStore() *Store {
	return &Store{
		playlists: make(map[string]*Playlist),
	}
}

// Get returns a snapshot of the user's playlist. Users without any recorded
// state get the default playlist: requests disabled, all arrangements, no
// queued requests.
func (s *Store) Get(userID string) Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.playlists[userID]
	if !exists {
		return *defaultPlaylist()
	}
	return snapshot(p)
}

// Update sets the enabled flag and, when arrangements is non-nil, the
// arrangement filter. It returns the resulting snapshot.
func (s *Store) Update(userID string, enabled bool, arrangements []Arrangement) Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(userID)
	p.SongRequestsEnabled = enabled
	if arrangements != nil {
		p.SongArrangements = append([]Arrangement(nil), arrangements...)
	}

	return snapshot(p)
}

// AddRequest appends a request to the user's queue. A request for a song that
// is already queued is ignored. The second return reports whether the queue
// changed.
func (s *Store) AddRequest(userID string, req SongRequest) (Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.getOrCreate(userID)
	for _, existing := range p.SongRequests {
		if existing.SongID == req.SongID {
			return snapshot(p), false
		}
	}

	p.SongRequests = append(p.SongRequests, req)
	return snapshot(p), true
}

// RemoveRequestAt removes the request at the given position. An out-of-range
// index leaves the queue untouched.
func (s *Store) RemoveRequestAt(userID string, index int) (Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.playlists[userID]
	if !exists {
		return *defaultPlaylist(), false
	}

	if index < 0 || index >= len(p.SongRequests) {
		return snapshot(p), false
	}

	p.SongRequests = append(p.SongRequests[:index], p.SongRequests[index+1:]...)
	return snapshot(p), true
}

// RemoveRequestBySong removes the first queued request for the given song id.
func (s *Store) RemoveRequestBySong(userID, songID string) (Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.playlists[userID]
	if !exists {
		return *defaultPlaylist(), false
	}

	for i, req := range p.SongRequests {
		if req.SongID == songID {
			p.SongRequests = append(p.SongRequests[:i], p.SongRequests[i+1:]...)
			return snapshot(p), true
		}
	}

	return snapshot(p), false
}

// getOrCreate returns the user's playlist, creating the default record on
// first touch. Caller must hold the write lock.
func (s *Store) getOrCreate(userID string) *Playlist {
	p, exists := s.playlists[userID]
	if !exists {
		p = defaultPlaylist()
		s.playlists[userID] = p
	}
	return p
}

func defaultPlaylist() *Playlist {
	return &Playlist{
		SongRequestsEnabled: false,
		SongArrangements:    DefaultArrangements(),
		SongRequests:        []SongRequest{},
	}
}

// snapshot copies a playlist so callers cannot mutate stored state through
// the returned slices.
func snapshot(p *Playlist) Playlist {
	return Playlist{
		SongRequestsEnabled: p.SongRequestsEnabled,
		SongArrangements:    append([]Arrangement(nil), p.SongArrangements...),
		SongRequests:        append([]SongRequest{}, p.SongRequests...),
	}
}
