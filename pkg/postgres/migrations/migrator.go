package migrations

import (
	"database/sql"
	"fmt"
	"time"

	_202610190900_contractActivity "github.com/Layr-Labs/contract-activity/pkg/postgres/migrations/202610190900_contractActivity"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Migration interface {
	Up(db *sql.DB, grm *gorm.DB) error
	GetName() string
}

// Migrations records every applied migration by name.
type Migrations struct {
	Name      string `gorm:"primaryKey;type:varchar"`
	CreatedAt time.Time
}

type Migrator struct {
	Db     *sql.DB
	GDb    *gorm.DB
	Logger *zap.Logger
}

func NewMigrator(db *sql.DB, gDb *gorm.DB, l *zap.Logger) *Migrator {
	return &Migrator{
		Db:     db,
		GDb:    gDb,
		Logger: l,
	}
}

func (m *Migrator) migrations() []Migration {
	return []Migration{
		&_202610190900_contractActivity.Migration{},
	}
}

// MigrateAll applies, in order, every migration not recorded yet.
func (m *Migrator) MigrateAll() error {
	if err := m.GDb.AutoMigrate(&Migrations{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range m.migrations() {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	var count int64
	res := m.GDb.Model(&Migrations{}).Where("name = ?", name).Count(&count)
	if res.Error != nil {
		return fmt.Errorf("failed to look up migration '%s': %w", name, res.Error)
	}
	if count > 0 {
		m.Logger.Sugar().Debugw("Migration already applied", zap.String("name", name))
		return nil
	}

	m.Logger.Sugar().Infow("Applying migration", zap.String("name", name))
	if err := migration.Up(m.Db, m.GDb); err != nil {
		return fmt.Errorf("failed to apply migration '%s': %w", name, err)
	}

	res = m.GDb.Clauses(clause.OnConflict{DoNothing: true}).Create(&Migrations{Name: name, CreatedAt: time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to record migration '%s': %w", name, res.Error)
	}
	return nil
}
