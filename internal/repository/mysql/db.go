package mysql

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB opens the MySQL connection shared by all repositories.
// TranslateError maps driver duplicate-key failures onto gorm.ErrDuplicatedKey,
// which is how display-name uniqueness is ultimately enforced.
func InitDB(dsn string) error {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}
	DB = db
	return nil
}
