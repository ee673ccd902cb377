package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sustainboard/board/auth"
	"sustainboard/board/schema"
	"sustainboard/board/services"
	"sustainboard/board/settings"
	"sustainboard/board/storage"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

/**
 * ==========================================================================
 * ==== All variables used by the server must be loaded here. This is    ====
 * ==== to make the data flow clear so that a user can see what          ====
 * ==== variables are exposed, and how the values are propagated through ====
 * ==== the system.                                                      ====
 * ==========================================================================
 */
type sustainBoardEnv struct {
	DatabaseUri string `env:"DATABASE_URI,required"`
	DataDir     string `env:"DATA_DIR,required"`

	JwtSecret       string `env:"JWT_SECRET,required"`
	TokenIssuer     string `env:"TOKEN_ISSUER" envDefault:"sustainboard"`
	TokenAudience   string `env:"TOKEN_AUDIENCE" envDefault:"sustainboard"`
	TokenTtlMinutes int    `env:"TOKEN_TTL_MINUTES" envDefault:"120"`

	DefaultRegistrationCode string `env:"DEFAULT_REGISTRATION_CODE,required"`
	DefaultMasterPassword   string `env:"DEFAULT_MASTER_PASSWORD,required"`

	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
}

func loadEnvFile(envFile string) {
	slog.Info(fmt.Sprintf("loading env from file %v", envFile))
	err := godotenv.Load(envFile)
	if err != nil {
		log.Fatalf("error loading .env file '%v': %v", envFile, err)
	}
}

func initLogging(logFile *os.File) {
	log.SetFlags(log.Lshortfile | log.Ltime | log.Ldate)
	log.SetOutput(io.MultiWriter(logFile, os.Stderr))
	slog.Info("logging initialized", "log_file", logFile.Name())
}

func postgresDsn(databaseUri string) string {
	parts, err := url.Parse(databaseUri)
	if err != nil {
		log.Fatalf("error parsing db uri: %v", err)
	}
	pwd, _ := parts.User.Password()
	dbname := strings.TrimPrefix(parts.Path, "/")
	return fmt.Sprintf("host=%v user=%v password=%v dbname=%v port=%v", parts.Hostname(), parts.User.Username(), pwd, dbname, parts.Port())
}

func initDb(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("error opening database connection: %v", err)
	}

	err = db.AutoMigrate(
		&schema.User{}, &schema.Profile{}, &schema.Project{},
		&schema.ProjectCollaborator{}, &schema.Impact{}, &schema.ImpactSdg{},
		&schema.Sdg{}, &schema.AppSetting{},
	)
	if err != nil {
		log.Fatalf("error migrating db schema: %v", err)
	}

	if err := schema.SeedSdgs(db); err != nil {
		log.Fatalf("error seeding sdg table: %v", err)
	}

	return db
}

func main() {
	envFile := flag.String("env", "", "File to load env variables from. If not specified will just load them from the environment variables already defined.")
	port := flag.Int("port", 8000, "Port to run server on")

	flag.Parse()

	if *envFile != "" {
		loadEnvFile(*envFile)
	}

	cfg := sustainBoardEnv{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load environment variables: %v", err)
	}

	err := os.MkdirAll(filepath.Join(cfg.DataDir, "logs/"), 0777)
	if err != nil {
		log.Fatalf("error creating log dir: %v", err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "logs/sustainboard.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer logFile.Close()

	auditFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "logs/audit.log"), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		log.Fatalf("error opening audit log file: %v", err)
	}
	defer auditFile.Close()

	initLogging(logFile)

	db := initDb(postgresDsn(cfg.DatabaseUri))

	tokens, err := auth.NewTokenFactory(
		[]byte(cfg.JwtSecret), cfg.TokenIssuer, cfg.TokenAudience,
		time.Duration(cfg.TokenTtlMinutes)*time.Minute,
	)
	if err != nil {
		log.Fatalf("error initializing token factory: %v", err)
	}

	gates := settings.NewStore(db, cfg.DefaultRegistrationCode, cfg.DefaultMasterPassword)

	store := storage.NewLocalDisk(cfg.DataDir)

	board := services.NewSustainBoard(db, store, tokens, gates, auth.NewAuditLogger(auditFile))

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Mount("/api/v1", board.Routes())

	slog.Info("starting server", "port", *port)
	err = http.ListenAndServe(fmt.Sprintf(":%d", *port), r)
	if err != nil {
		log.Fatalf("listen and serve returned error: %v", err.Error())
	}
}
