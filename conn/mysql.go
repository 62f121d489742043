package conn

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"cashier-backend/config"
)

// NewMySQL opens the billing database, creating it first when it does not
// exist yet so a fresh environment boots without manual setup.
func NewMySQL(cfg *config.Config) (*sql.DB, error) {
	adminDSN := fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true", cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort)
	adminDB, err := sql.Open("mysql", adminDSN)
	if err != nil {
		return nil, err
	}
	if err := adminDB.Ping(); err != nil {
		adminDB.Close()
		return nil, err
	}
	if _, err := adminDB.Exec("CREATE DATABASE IF NOT EXISTS `" + cfg.DBName + "` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci"); err != nil {
		adminDB.Close()
		return nil, err
	}
	adminDB.Close()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}
