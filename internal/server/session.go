package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ryabkov82/dataset-merger/internal/ingest"
	"github.com/ryabkov82/dataset-merger/internal/table"
)

// session - состояние одного сценария объединения: два загруженных
// набора данных и последний результат. Доступ к полям только под mu.
type session struct {
	mu sync.Mutex

	id     string
	files  [2]*ingest.File
	sheets [2]string
	tables [2]*table.Table
	result *table.Table
}

// setDataset сохраняет разобранный набор в слот. Прежний результат
// объединения при этом устаревает.
func (s *session) setDataset(slot int, f *ingest.File, sheet string, t *table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[slot] = f
	s.sheets[slot] = sheet
	s.tables[slot] = t
	s.result = nil
}

// sessionStore хранит сессии с ограничением по количеству и времени
// жизни: старые и давно не используемые вытесняются.
type sessionStore struct {
	cache *expirable.LRU[string, *session]
}

func newSessionStore(maxSessions int, ttl time.Duration) *sessionStore {
	return &sessionStore{
		cache: expirable.NewLRU[string, *session](maxSessions, nil, ttl),
	}
}

func (s *sessionStore) Create() *session {
	sess := &session{id: uuid.NewString()}
	s.cache.Add(sess.id, sess)
	return sess
}

func (s *sessionStore) Get(id string) (*session, bool) {
	return s.cache.Get(id)
}

func (s *sessionStore) Len() int {
	return s.cache.Len()
}
