package session

import (
	"os"
	"path/filepath"
	"testing"

	"alerta-vecinal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{ID: 7, Username: "maria", Email: "maria@example.com", FirstName: "María"}
}

func TestSessionSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	store.SetSession(testUser(), "token-abc")

	// Новый Store поверх того же каталога видит ту же сессию
	reopened, err := NewStore(dir)
	require.NoError(t, err)
	assert.True(t, reopened.IsAuthenticated())
	assert.Equal(t, "token-abc", reopened.Token())

	user := reopened.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, int64(7), user.ID)
	assert.Equal(t, "maria", user.Username)
}

func TestLogoutClearsEverythingSynchronously(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)
	store.SetSession(testUser(), "token-abc")

	require.True(t, store.Logout())

	// Состояние очищено немедленно, без ожидания сети
	assert.False(t, store.IsAuthenticated())
	assert.Equal(t, "", store.Token())
	assert.Nil(t, store.CurrentUser())

	// Оба файла удалены вместе
	_, err = os.Stat(filepath.Join(dir, tokenFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, userFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRepeatedLogoutReportsNoSession(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	store.SetSession(testUser(), "token-abc")

	assert.True(t, store.Logout())
	// Повторный 401 не должен приводить ко второй уборке
	assert.False(t, store.Logout())
	assert.False(t, store.Logout())
}

func TestOrphanTokenIsDiscardedOnLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, tokenFile), []byte("dangling"), 0o600))

	store, err := NewStore(dir)
	require.NoError(t, err)

	// Токен без личности бесполезен
	assert.False(t, store.IsAuthenticated())
	_, statErr := os.Stat(filepath.Join(dir, tokenFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCorruptUserFileResetsSession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, tokenFile), []byte("token"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, userFile), []byte("{not json"), 0o600))

	store, err := NewStore(dir)
	require.NoError(t, err)
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.CurrentUser())
}

func TestSubscribeSeesLoginAndLogout(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	ch, cancel := store.Subscribe()
	defer cancel()

	store.SetSession(testUser(), "token-abc")
	got := <-ch
	require.NotNil(t, got)
	assert.Equal(t, "maria", got.Username)

	store.Logout()
	assert.Nil(t, <-ch)
}

func TestUpdateUserKeepsToken(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	store.SetSession(testUser(), "token-abc")

	renamed := testUser()
	renamed.FirstName = "María José"
	assert.True(t, store.UpdateUser(renamed))

	assert.Equal(t, "token-abc", store.Token())
	assert.Equal(t, "María José", store.CurrentUser().FirstName)
}

func TestUpdateUserSkippedAfterLogout(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	store.SetSession(testUser(), "token-abc")
	store.Logout()

	// Запоздавший ответ профиля не воскрешает сессию без токена
	assert.False(t, store.UpdateUser(testUser()))
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.CurrentUser())
}

func TestCurrentUserReturnsSnapshot(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	store.SetSession(testUser(), "token-abc")

	first := store.CurrentUser()
	first.Username = "mutated"

	// Мутация снапшота не протекает в хранилище
	assert.Equal(t, "maria", store.CurrentUser().Username)
}
