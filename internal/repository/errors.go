package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 条件更新时目标记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict 条件更新时状态已被其他请求改变
	ErrStatusConflict = errors.New("status conflict")
)

// StatusConflictError 比较并设置失败时携带的当前状态
type StatusConflictError struct {
	ID       uint
	Expected string
	Current  string
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("status conflict on id %d: expected %s, current %s", e.ID, e.Expected, e.Current)
}

// Is 支持 errors.Is(err, ErrStatusConflict)
func (e *StatusConflictError) Is(target error) bool {
	return target == ErrStatusConflict
}
