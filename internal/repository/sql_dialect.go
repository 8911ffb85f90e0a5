package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// likeCondition 构建不区分大小写的 LIKE 条件；sqlite 需显式声明转义符。
func likeCondition(db *gorm.DB, column string) string {
	dialect := dbDialectName(db)
	if dialect == "sqlite" {
		return fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, column)
	}
	return fmt.Sprintf("%s %s ?", column, likeOperatorByDialect(dialect))
}

// likePattern 转义通配符后包裹 %。
func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(search)) + "%"
}

// supportsRowLock 方言是否支持 SELECT ... FOR UPDATE。
func supportsRowLock(dialect string) bool {
	switch dialect {
	case "postgres", "postgresql", "mysql":
		return true
	default:
		return false
	}
}

// lockForUpdate 为查询附加行锁；sqlite 不支持行锁时原样返回。
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if supportsRowLock(dbDialectName(db)) {
		return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return db
}
