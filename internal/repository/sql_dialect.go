package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
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

// buildLikeCondition 构建多列 LIKE 条件，并返回参数数量。
func buildLikeCondition(db *gorm.DB, columns []string) (string, int) {
	return buildLikeConditionByDialect(dbDialectName(db), columns)
}

func buildLikeConditionByDialect(dialect string, columns []string) (string, int) {
	parts := make([]string, 0, len(columns))
	operator := likeOperatorByDialect(dialect)
	for _, column := range columns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", trimmed, operator))
	}
	return strings.Join(parts, " OR "), len(parts)
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// repeatLikeArgs 生成重复的 LIKE 参数列表。
func repeatLikeArgs(like string, count int) []interface{} {
	args := make([]interface{}, 0, count)
	for i := 0; i < count; i++ {
		args = append(args, like)
	}
	return args
}

// applySearch 对多列追加模糊搜索条件
func applySearch(query *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if query == nil || search == "" {
		return query
	}
	condition, argCount := buildLikeCondition(query, columns)
	if argCount == 0 {
		return query
	}
	return query.Where("("+condition+")", repeatLikeArgs("%"+search+"%", argCount)...)
}

// applyScope 按租户列与商户列限制可见范围，空列名表示该维度不参与过滤。
func applyScope(query *gorm.DB, scope ScopeFilter, tenantColumn, merchantColumn string) *gorm.DB {
	if query == nil || !scope.Restricted {
		return query
	}
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if tenantColumn != "" && len(scope.TenantIDs) > 0 {
		conditions = append(conditions, tenantColumn+" IN ?")
		args = append(args, scope.TenantIDs)
	}
	if merchantColumn != "" && len(scope.MerchantIDs) > 0 {
		conditions = append(conditions, merchantColumn+" IN ?")
		args = append(args, scope.MerchantIDs)
	}
	if len(conditions) == 0 {
		return query.Where("1 = 0")
	}
	return query.Where("("+strings.Join(conditions, " OR ")+")", args...)
}
