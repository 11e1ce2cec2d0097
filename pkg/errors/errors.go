package errors

import "errors"

// ErrConditionalUpdate 条件更新未命中：记录已被其他请求修改
var ErrConditionalUpdate = errors.New("记录状态已被其他操作修改")
