package tests

import (
	"bytes"
	"testing"
	"time"

	"sustainboard/board/auth"
	"sustainboard/board/schema"
	"sustainboard/board/services"
	"sustainboard/board/settings"
	"sustainboard/board/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	board   services.SustainBoard
	api     chi.Router
	db      *gorm.DB
	storage storage.Storage
	tokens  *auth.TokenFactory
	gates   *settings.Store
}

const (
	registrationCode = "LETMEIN"
	masterPassword   = "Master_Password_123"

	adminName     = "admin123"
	adminEmail    = "admin123@mail.com"
	adminPassword = "admin_password123"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func setupTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Profile{}, &schema.Project{},
		&schema.ProjectCollaborator{}, &schema.Impact{}, &schema.ImpactSdg{},
		&schema.Sdg{}, &schema.AppSetting{},
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := schema.SeedSdgs(db); err != nil {
		t.Fatal(err)
	}

	tokens, err := auth.NewTokenFactory(testSecret, "sustainboard", "sustainboard", 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	gates := settings.NewStore(db, registrationCode, masterPassword)

	store := storage.NewLocalDisk(t.TempDir())

	board := services.NewSustainBoard(db, store, tokens, gates, auth.NewAuditLogger(new(bytes.Buffer)))

	return &testEnv{
		board:   board,
		api:     board.Routes(),
		db:      db,
		storage: store,
		tokens:  tokens,
		gates:   gates,
	}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) newUser(name string) (client, error) {
	c := t.newClient()
	_, err := c.register(name, name+"@mail.com", name+"_password", registrationCode)
	if err != nil {
		return client{}, err
	}
	return c, nil
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.createAdmin(adminName, adminEmail, adminPassword, masterPassword)
	return c, err
}
