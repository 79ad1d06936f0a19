package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// NA 是不可计算结果在界面上的显示值
const NA = "N/A"

// Value 可能未定义的标量，未定义时序列化为 "N/A" 而不是 0
type Value struct {
	V     float64
	Valid bool
}

// Some 包装一个数值，NaN/Inf 自动视为未定义
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, Valid: true}
}

// Undefined 显式的未定义结果
func Undefined() Value { return Value{} }

// Ratio a/b，分母为零时未定义
func Ratio(a, b float64) Value {
	if b == 0 {
		return Value{}
	}
	return Some(a / b)
}

func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.V
}

// Format 按小数位输出，未定义时返回 N/A
func (v Value) Format(decimals int, suffix string) string {
	if !v.Valid {
		return NA
	}
	return fmt.Sprintf("%.*f%s", decimals, v.V, suffix)
}

func (v Value) String() string {
	return v.Format(2, "")
}

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return json.Marshal(NA)
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s == NA {
			*v = Value{}
			return nil
		}
		return fmt.Errorf("%w: unexpected value %q", ErrUndefined, s)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Some(f)
	return nil
}
