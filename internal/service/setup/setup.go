// internal/service/setup/setup.go
package setup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"notary-service/internal/config"
	"notary-service/internal/domain/auth"
	"notary-service/internal/domain/setting"
	"notary-service/internal/pkg/crypto"
	xerrors "notary-service/internal/pkg/errors"
	"notary-service/internal/repository/postgres"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Opener connects to a database. postgres.Open in production.
type Opener func(ctx context.Context, cfg postgres.ConnConfig) (*sql.DB, error)

// Input is everything the installer asks for.
type Input struct {
	DBHost         string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string
	CreateDatabase bool

	SystemName      string
	DefaultLanguage string
	Timezone        string
	BaseURL         string
	HTTPAddr        string
	RedisAddr       string

	AdminUsername string
	AdminEmail    string
	AdminFullName string
	AdminPassword string
}

type Wizard struct {
	path       string
	open       Opener
	hasherCost int
	minLength  int
	logger     *zap.Logger
}

func NewWizard(path string, open Opener, hasherCost int, logger *zap.Logger) *Wizard {
	return &Wizard{
		path:       path,
		open:       open,
		hasherCost: hasherCost,
		minLength:  config.DefaultPasswordMinLength,
		logger:     logger,
	}
}

// Validate lists every problem with in.
func (w *Wizard) Validate(in *Input) error {
	var errs []error
	if strings.TrimSpace(in.DBHost) == "" {
		errs = append(errs, xerrors.Invalid("db_host", "Database host is required"))
	}
	if strings.TrimSpace(in.DBName) == "" {
		errs = append(errs, xerrors.Invalid("db_name", "Database name is required"))
	}
	if strings.TrimSpace(in.DBUser) == "" {
		errs = append(errs, xerrors.Invalid("db_user", "Database user is required"))
	}
	if in.DBPort < 0 || in.DBPort > 65535 {
		errs = append(errs, xerrors.Invalid("db_port", "Database port is out of range"))
	}
	if strings.TrimSpace(in.SystemName) == "" {
		errs = append(errs, xerrors.Invalid("system_name", "System name is required"))
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		errs = append(errs, xerrors.Invalid("timezone", fmt.Sprintf("Unknown timezone %q", in.Timezone)))
	}
	if len(strings.TrimSpace(in.AdminUsername)) < 3 {
		errs = append(errs, xerrors.Invalid("admin_username", "Administrator username must have at least 3 characters"))
	}
	if _, err := mail.ParseAddress(in.AdminEmail); err != nil {
		errs = append(errs, xerrors.Invalid("admin_email", "Administrator email is not valid"))
	}
	if len(in.AdminPassword) < w.minLength {
		errs = append(errs, xerrors.Invalid("admin_password",
			fmt.Sprintf("Administrator password must be at least %d characters", w.minLength)))
	}
	return errors.Join(errs...)
}

// Run installs the system. The config directory is checked before the
// database is touched, and the file is written inside the install
// transaction so that a failed write rolls the install back and a failed
// commit removes the file.
func (w *Wizard) Run(ctx context.Context, in *Input) (*config.Config, error) {
	if config.Exists(w.path) {
		return nil, xerrors.ErrAlreadyConfigured
	}
	if err := w.Validate(in); err != nil {
		return nil, err
	}

	key, err := crypto.RandomHex(32)
	if err != nil {
		return nil, err
	}
	cfg := config.Config{
		DBHost:          strings.TrimSpace(in.DBHost),
		DBPort:          in.DBPort,
		DBName:          strings.TrimSpace(in.DBName),
		DBUser:          strings.TrimSpace(in.DBUser),
		DBPassword:      in.DBPassword,
		SystemName:      strings.TrimSpace(in.SystemName),
		DefaultLanguage: in.DefaultLanguage,
		Timezone:        in.Timezone,
		BaseURL:         in.BaseURL,
		HTTPAddr:        in.HTTPAddr,
		RedisAddr:       in.RedisAddr,
		EncryptionKey:   key,
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.CheckWritable(w.path); err != nil {
		return nil, err
	}

	conn := postgres.ConnConfig{
		Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		User: cfg.DBUser, Password: cfg.DBPassword, Charset: cfg.DBCharset,
	}
	if in.CreateDatabase {
		if err := w.createDatabase(ctx, conn); err != nil {
			return nil, err
		}
	}

	db, err := w.open(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	cipher, err := crypto.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	gw := postgres.NewGateway(db, crypto.NewPasswordHasher(w.hasherCost), cipher, w.logger)
	written := false
	if err := gw.WithTx(ctx, func(tx *postgres.Gateway) error {
		if err := w.install(ctx, tx, in, &cfg); err != nil {
			return err
		}
		if err := config.Write(w.path, cfg); err != nil {
			return err
		}
		written = true
		return nil
	}); err != nil {
		if written {
			if rmErr := os.Remove(w.path); rmErr != nil {
				w.logger.Error("failed to remove config after aborted install", zap.String("path", w.path), zap.Error(rmErr))
			}
		}
		return nil, fmt.Errorf("install: %w", err)
	}
	w.logger.Info("system installed",
		zap.String("database", cfg.DBName),
		zap.String("admin", in.AdminUsername),
	)
	return &cfg, nil
}

func (w *Wizard) install(ctx context.Context, tx *postgres.Gateway, in *Input, cfg *config.Config) error {
	if err := postgres.CreateSchema(ctx, tx); err != nil {
		return err
	}
	for _, r := range auth.AllRoles {
		st := tx.Execute(ctx, `INSERT INTO roles (name, description) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`,
			r.String(), roleDescription(r))
		if st.Failed() {
			return st.Err()
		}
	}

	users := postgres.NewUserRepository(tx)
	roleID, err := users.RoleID(ctx, auth.RoleAdministrator)
	if err != nil {
		return err
	}
	hash, err := tx.HashPassword(in.AdminPassword)
	if err != nil {
		return err
	}
	fullName := strings.TrimSpace(in.AdminFullName)
	if fullName == "" {
		fullName = "System Administrator"
	}
	admin := &auth.User{
		Username:     strings.TrimSpace(in.AdminUsername),
		Email:        strings.TrimSpace(in.AdminEmail),
		PasswordHash: hash,
		FullName:     fullName,
		RoleID:       roleID,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}

	settings := postgres.NewSettingRepository(tx)
	for _, s := range DefaultSettings(cfg) {
		if err := settings.Seed(ctx, s.Key, s.Value, s.Description); err != nil {
			return err
		}
	}
	return nil
}

// DefaultSettings are the settings rows created at install.
func DefaultSettings(cfg *config.Config) []setting.Setting {
	types, _ := pq.StringArray(cfg.AllowedFileTypes).Value()
	return []setting.Setting{
		{Key: setting.KeySystemName, Value: cfg.SystemName, Description: "Name shown in page titles and emails"},
		{Key: setting.KeyDefaultLanguage, Value: cfg.DefaultLanguage, Description: "Interface language"},
		{Key: setting.KeyTimezone, Value: cfg.Timezone, Description: "Time zone used for dates"},
		{Key: setting.KeyMaintenanceNotice, Value: "", Description: "Banner shown on every page when set"},
		{Key: setting.KeyAllowedFileTypes, Value: types.(string), Description: "Accepted upload extensions"},
	}
}

// createDatabase connects to the maintenance database and creates the
// target database unless it exists.
func (w *Wizard) createDatabase(ctx context.Context, conn postgres.ConnConfig) error {
	target := conn.Name
	conn.Name = "postgres"
	db, err := w.open(ctx, conn)
	if err != nil {
		return fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer db.Close()

	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, target).Scan(&exists); err != nil {
		return fmt.Errorf("check database: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(target)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	w.logger.Info("database created", zap.String("database", target))
	return nil
}

func roleDescription(r auth.Role) string {
	switch r {
	case auth.RoleAdministrator:
		return "Ministry system administrator"
	case auth.RoleSupervisor:
		return "Reviews notary submissions and performance"
	case auth.RoleNotary:
		return "Licensed notary drafting contracts"
	}
	return ""
}
