package database

import (
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MemoryPath открывает базу в памяти процесса
const MemoryPath = ":memory:"

// NewSQLiteDB открывает встроенную базу SQLite. Используется для локального
// запуска и тестов. Внешние ключи включаются явно, иначе каскадное удаление
// платежей не работает
func NewSQLiteDB(path string, log *zap.Logger) (*gorm.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path == MemoryPath {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite допускает одного писателя, а база в памяти живет в одном соединении
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
