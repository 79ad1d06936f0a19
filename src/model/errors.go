package model

import "errors"

var (
	// ErrMissingData 请求的时段或实体在数据源中不存在
	ErrMissingData = errors.New("missing data")
	// ErrInvalidFilter 过滤参数非法（区间颠倒、未知指标等）
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrUndefined 比值类指标分母为零
	ErrUndefined = errors.New("computation undefined")
	// ErrSchema 数据表缺少必需列
	ErrSchema = errors.New("schema mismatch")
)
