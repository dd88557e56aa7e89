// internal/session/store.go
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"alerta-vecinal/internal/models"

	log "github.com/sirupsen/logrus"
)

// Имена файлов повторяют ключи localStorage оригинального клиента.
// Оба файла очищаются вместе при выходе.
const (
	tokenFile = "auth_token"
	userFile  = "current_user.json"
)

// Store владеет текущей парой личность/токен. Все остальные компоненты
// читают снапшот и никогда не пишут сюда напрямую. Токен нужно читать
// лениво в момент отправки запроса, а не кешировать при создании
// компонента: между созданием и отправкой мог произойти logout.
type Store struct {
	mu    sync.RWMutex
	user  *models.User
	token string
	dir   string

	subMu   sync.Mutex
	subs    map[int]chan *models.User
	nextSub int
}

func NewStore(stateDir string) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, err
	}

	s := &Store{
		dir:  stateDir,
		subs: make(map[int]chan *models.User),
	}
	s.loadStored()
	return s, nil
}

// loadStored восстанавливает сессию с диска при старте.
func (s *Store) loadStored() {
	data, err := os.ReadFile(filepath.Join(s.dir, tokenFile))
	if err != nil {
		return
	}
	s.token = string(data)

	userData, err := os.ReadFile(filepath.Join(s.dir, userFile))
	if err != nil {
		// Токен без личности бесполезен, чистим оба ключа
		s.token = ""
		s.clearFiles()
		return
	}

	var user models.User
	if err := json.Unmarshal(userData, &user); err != nil {
		log.Warnf("Повреждённый файл сессии, сбрасываем: %v", err)
		s.token = ""
		s.clearFiles()
		return
	}
	s.user = &user
}

// SetSession устанавливает новую пару личность/токен после login/register.
func (s *Store) SetSession(user *models.User, token string) {
	s.mu.Lock()
	u := *user
	s.user = &u
	s.token = token
	s.persist()
	s.mu.Unlock()

	s.notify(&u)
}

// UpdateUser обновляет снапшот личности, не трогая токен. Если сессии уже
// нет (параллельный принудительный выход), обновление пропускается: личность
// без токена воскресила бы авторизованный вид сессии. Возвращает false,
// когда обновление пропущено.
func (s *Store) UpdateUser(user *models.User) bool {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return false
	}
	u := *user
	s.user = &u
	s.persist()
	s.mu.Unlock()

	s.notify(&u)
	return true
}

// Token возвращает актуальный токен на момент вызова.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// CurrentUser возвращает снапшот текущего пользователя или nil.
func (s *Store) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Logout синхронно и безусловно чистит локальное состояние. Сетевое
// уведомление сервера — забота вызывающего и происходит только после
// этого: интерфейс не должен показывать авторизованное состояние, даже
// если сеть зависла. Возвращает false, если сессии уже не было — так
// один протухший токен приводит ровно к одному logout.
func (s *Store) Logout() bool {
	s.mu.Lock()
	had := s.token != "" || s.user != nil
	s.user = nil
	s.token = ""
	s.clearFiles()
	s.mu.Unlock()

	if had {
		s.notify(nil)
	}
	return had
}

// Subscribe возвращает поток изменений личности (nil = вышел) и функцию
// отписки.
func (s *Store) Subscribe() (<-chan *models.User, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan *models.User, 8)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Store) notify(user *models.User) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- user:
		default:
			// Медленный подписчик не должен блокировать выход
		}
	}
}

// persist и clearFiles вызываются под s.mu.
func (s *Store) persist() {
	if err := os.WriteFile(filepath.Join(s.dir, tokenFile), []byte(s.token), 0o600); err != nil {
		log.Errorf("Не удалось сохранить токен: %v", err)
	}
	data, err := json.Marshal(s.user)
	if err == nil {
		err = os.WriteFile(filepath.Join(s.dir, userFile), data, 0o600)
	}
	if err != nil {
		log.Errorf("Не удалось сохранить пользователя: %v", err)
	}
}

func (s *Store) clearFiles() {
	os.Remove(filepath.Join(s.dir, tokenFile))
	os.Remove(filepath.Join(s.dir, userFile))
}
