package session

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	keyName     = "user_name"
	keyEmail    = "user_email"
	keyPhotoURL = "user_photo_url"
	keyShowList = "show_list"
)

var ErrClosed = errors.New("session store closed")

type Store struct {
	db *sql.DB

	mu      sync.Mutex
	closed  bool
	nextSub int
	subs    map[int]chan Session
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, subs: map[int]chan Session{}}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) CurrentSession(ctx context.Context) (Session, error) {
	vals, err := s.getMany(ctx, keyName, keyEmail, keyPhotoURL)
	if err != nil {
		return Session{}, err
	}
	return Session{Name: vals[keyName], Email: vals[keyEmail], PhotoURL: vals[keyPhotoURL]}, nil
}

// Save replaces the stored identity; saving the zero Session signs out.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if s.isClosed() {
		return ErrClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for k, v := range map[string]string{keyName: sess.Name, keyEmail: sess.Email, keyPhotoURL: sess.PhotoURL} {
		if err := upsert(ctx, tx, k, v); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.publish(sess)
	return nil
}

// DisplayMode is true for list layout and false for grid; list is the default.
func (s *Store) DisplayMode(ctx context.Context) (bool, error) {
	vals, err := s.getMany(ctx, keyShowList)
	if err != nil {
		return true, err
	}
	v, ok := vals[keyShowList]
	if !ok {
		return true, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return true, nil
	}
	return b, nil
}

func (s *Store) SetDisplayMode(ctx context.Context, showList bool) error {
	if s.isClosed() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, keyShowList, strconv.FormatBool(showList))
	return err
}

// Watch delivers the current session immediately and every saved session
// afterwards. Only the latest unread value is kept per watcher.
func (s *Store) Watch(ctx context.Context) (<-chan Session, func(), error) {
	cur, err := s.CurrentSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrClosed
	}
	ch := make(chan Session, 1)
	ch <- cur
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
	return ch, cancel, nil
}

func (s *Store) publish(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- sess
	}
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) getMany(ctx context.Context, keys ...string) (map[string]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		var v string
		err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, k).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func upsert(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
