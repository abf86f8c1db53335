package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"vane/api/internal/config"
	"vane/api/internal/github"
	"vane/api/internal/importer"
	"vane/api/internal/search"
	"vane/api/internal/store"
)

const (
	dayLayout = "2006-01-02"

	// loginStateTTL bounds how long a started OAuth login may stay pending.
	loginStateTTL = 10 * time.Minute
	// providerTokenTTL is how long a user's provider token stays cached in
	// the session store; refreshed on every completed login.
	providerTokenTTL = 30 * 24 * time.Hour
)

type dataStore interface {
	Ping(ctx context.Context) error
	ListVanes(ctx context.Context) ([]store.Vane, error)
	CreateVane(ctx context.Context, title string) (store.Vane, error)
	DeleteVane(ctx context.Context, id string) error
	AppendLogEntry(ctx context.Context, id string, entry store.LogEntry) (store.Vane, error)
	RemoveLogEntries(ctx context.Context, id, day string) error
	CreateVanes(ctx context.Context, vanes []store.Vane) ([]store.Vane, error)
	FindUserByGithubID(ctx context.Context, githubID string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) (store.User, error)
}

type sessionStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type identityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	User(ctx context.Context, accessToken string) (github.UserInfo, error)
}

type vaneSearch interface {
	Search(text string, limit int) search.Response
	IndexVane(record search.VaneRecord)
	IndexVanes(records []search.VaneRecord)
	RemoveVane(id string)
}

// Service implements the habit-record and user-identity operations on top of
// the injected store, session, identity, and search collaborators. It holds
// no state of its own between requests.
type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	identity identityProvider
	search   vaneSearch
	now      func() time.Time
}

func New(cfg config.Config, dataStore dataStore, sessions sessionStore, identity identityProvider, searcher vaneSearch) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		identity: identity,
		search:   searcher,
		now:      time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListVanes(ctx context.Context) ([]store.Vane, error) {
	return s.store.ListVanes(ctx)
}

func (s *Service) CreateVane(ctx context.Context, title string) (store.Vane, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Vane{}, validationError("title is required")
	}
	created, err := s.store.CreateVane(ctx, title)
	if err != nil {
		return store.Vane{}, err
	}
	if s.search != nil {
		s.search.IndexVane(search.VaneRecord{ID: created.ID, Title: created.Title})
	}
	return created, nil
}

func (s *Service) DeleteVane(ctx context.Context, id string) error {
	if err := s.store.DeleteVane(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError()
		}
		return err
	}
	if s.search != nil {
		s.search.RemoveVane(id)
	}
	return nil
}

// LogDay appends one completion-log entry for the given day. The entry is
// appended even when the day is already logged; day uniqueness across
// concurrent calls is not enforced.
func (s *Service) LogDay(ctx context.Context, vaneID, day string) (store.Vane, error) {
	normalized, err := normalizeDay(day)
	if err != nil {
		return store.Vane{}, validationError("day must be a date")
	}
	entry := store.LogEntry{
		Key:       uuid.NewString(),
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Day:       normalized,
	}
	updated, err := s.store.AppendLogEntry(ctx, vaneID, entry)
	if err != nil {
		log.Printf("log day failed for vane=%s day=%s: %v", vaneID, normalized, err)
		return store.Vane{}, trackingError("Can't track vane")
	}
	return updated, nil
}

// UnlogDay removes every log entry for the given day. Removing a day that
// was never logged succeeds.
func (s *Service) UnlogDay(ctx context.Context, vaneID, day string) error {
	normalized, err := normalizeDay(day)
	if err != nil {
		return validationError("day must be a date")
	}
	if err := s.store.RemoveLogEntries(ctx, vaneID, normalized); err != nil {
		log.Printf("unlog day failed for vane=%s day=%s: %v", vaneID, normalized, err)
		return trackingError("Can't untrack vane")
	}
	return nil
}

// ImportCSV transforms every row of the stream and creates the resulting
// vanes in one all-or-nothing transaction. Returns the number of rows
// processed. A commit failure is surfaced to the caller, never swallowed.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (int, error) {
	rows, err := importer.ReadRows(r, s.now())
	if err != nil {
		return 0, importError("CSV is not valid")
	}

	vanes := make([]store.Vane, 0, len(rows))
	for _, row := range rows {
		vanes = append(vanes, store.Vane{Title: row.Title, Log: row.Log})
	}

	created, err := s.store.CreateVanes(ctx, vanes)
	if err != nil {
		log.Printf("import transaction failed: %v", err)
		return 0, importError("import transaction failed")
	}

	if s.search != nil {
		records := make([]search.VaneRecord, 0, len(created))
		for _, item := range created {
			records = append(records, search.VaneRecord{ID: item.ID, Title: item.Title})
		}
		s.search.IndexVanes(records)
	}
	return len(rows), nil
}

// BeginLogin parks a fresh state nonce in the session store and returns the
// provider authorize URL to redirect to.
func (s *Service) BeginLogin(ctx context.Context) (string, error) {
	if s.identity == nil {
		return "", domainError(503, "AUTH_UNAVAILABLE", "Authentication is not configured")
	}
	state := uuid.NewString()
	if err := s.sessions.Set(ctx, "state:"+state, "pending", loginStateTTL); err != nil {
		return "", err
	}
	return s.identity.AuthCodeURL(state), nil
}

// CompleteLogin verifies the state nonce, exchanges the code, looks up the
// provider identity, and returns the local user for it.
func (s *Service) CompleteLogin(ctx context.Context, code, state string) (store.User, error) {
	if s.identity == nil {
		return store.User{}, domainError(503, "AUTH_UNAVAILABLE", "Authentication is not configured")
	}
	if code == "" {
		return store.User{}, validationError("code is required")
	}
	if _, err := s.sessions.Get(ctx, "state:"+state); err != nil {
		return store.User{}, validationError("invalid oauth state")
	}
	_ = s.sessions.Delete(ctx, "state:"+state)

	accessToken, err := s.identity.Exchange(ctx, code)
	if err != nil {
		log.Printf("oauth code exchange failed: %v", err)
		return store.User{}, identityError("could not exchange authorization code")
	}

	info, err := s.identity.User(ctx, accessToken)
	if err != nil {
		log.Printf("oauth user lookup failed: %v", err)
		return store.User{}, identityError("could not resolve provider identity")
	}

	user, err := s.FindOrCreateUser(ctx, info.ID, accessToken)
	if err != nil {
		return store.User{}, err
	}

	// The stored user document keeps its first token; the session entry
	// always carries the current one.
	if err := s.sessions.Set(ctx, "token:"+user.UID, accessToken, providerTokenTTL); err != nil {
		log.Printf("cache provider token for uid=%s: %v", user.UID, err)
	}
	return user, nil
}

// FindOrCreateUser returns the user document for a provider id, creating one
// on first login. Repeat logins return the stored document unchanged.
func (s *Service) FindOrCreateUser(ctx context.Context, githubID, accessToken string) (store.User, error) {
	if githubID == "" {
		return store.User{}, identityError("provider returned no user id")
	}

	user, err := s.store.FindUserByGithubID(ctx, githubID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, err
	}

	return s.store.CreateUser(ctx, store.User{
		UID:       uuid.NewString(),
		GithubID:  githubID,
		AuthToken: accessToken,
	})
}

// Search answers a vane title query.
func (s *Service) Search(text string, limit int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(text, limit)
}

func normalizeDay(day string) (string, error) {
	day = strings.TrimSpace(day)
	if parsed, err := time.Parse(dayLayout, day); err == nil {
		return parsed.Format(dayLayout), nil
	}
	parsed, err := time.Parse(time.RFC3339, day)
	if err != nil {
		return "", err
	}
	return parsed.Format(dayLayout), nil
}
