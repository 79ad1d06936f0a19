package model

import (
	"fmt"
	"regexp"
	"strconv"
)

// 数据集覆盖的年份范围
const (
	MinYear = 1990
	MaxYear = 2024
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// Period 年月，所有记录都以 (year, month) 为键
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod 构造并校验年月
func NewPeriod(year, month int) (Period, error) {
	p := Period{Year: year, Month: month}
	if !p.Valid() {
		return Period{}, fmt.Errorf("%w: period %d-%02d out of range", ErrInvalidFilter, year, month)
	}
	return p, nil
}

// PeriodFromCode 从 YYYYMM 整数还原年月
func PeriodFromCode(code int) Period {
	return Period{Year: code / 100, Month: code % 100}
}

// ParsePeriod 支持 "2019-03"、"201903"、"2019/03"、"2019-3"
func ParsePeriod(s string) (Period, error) {
	digits := nonDigit.ReplaceAllString(s, "")
	if digits == "" {
		return Period{}, fmt.Errorf("%w: empty period %q", ErrInvalidFilter, s)
	}

	var year, month int
	var err error
	switch {
	case len(digits) == 6:
		year, _ = strconv.Atoi(digits[:4])
		month, _ = strconv.Atoi(digits[4:])
	case len(digits) == 5 && len(s) > 5:
		// 2019-3 这种月份不补零的写法
		year, _ = strconv.Atoi(digits[:4])
		month, _ = strconv.Atoi(digits[4:])
	case len(digits) == 4:
		year, err = strconv.Atoi(digits)
		month = 1
	default:
		return Period{}, fmt.Errorf("%w: cannot parse period %q", ErrInvalidFilter, s)
	}
	if err != nil {
		return Period{}, fmt.Errorf("%w: cannot parse period %q", ErrInvalidFilter, s)
	}
	return NewPeriod(year, month)
}

func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

// InDataRange 有效且年份落在 [MinYear, MaxYear]
func (p Period) InDataRange() bool {
	return p.Valid() && p.Year >= MinYear && p.Year <= MaxYear
}

// Code 返回 YYYYMM 形式的整数，用于 DataFrame 中的 period 列
func (p Period) Code() int {
	return p.Year*100 + p.Month
}

// Index 连续的月序号，相邻月份差 1
func (p Period) Index() int {
	return p.Year*12 + p.Month - 1
}

// AddMonths 向前或向后平移若干个月
func (p Period) AddMonths(n int) Period {
	idx := p.Index() + n
	return Period{Year: idx / 12, Month: idx%12 + 1}
}

func (p Period) Before(o Period) bool { return p.Index() < o.Index() }
func (p Period) After(o Period) bool  { return p.Index() > o.Index() }

// Quarter 例如 "2019Q3"
func (p Period) Quarter() string {
	return fmt.Sprintf("%dQ%d", p.Year, (p.Month-1)/3+1)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	v, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// DateRange 闭区间 [Start, End]
type DateRange struct {
	Start Period `json:"start"`
	End   Period `json:"end"`
}

// FullRange 数据集的完整时间范围
func FullRange() DateRange {
	return DateRange{
		Start: Period{Year: MinYear, Month: 1},
		End:   Period{Year: MaxYear, Month: 12},
	}
}

// IsZero 未设置的区间
func (r DateRange) IsZero() bool {
	return r.Start == Period{} && r.End == Period{}
}

// Normalize 补齐缺省端点并裁剪到数据集范围，起止颠倒时报错
func (r DateRange) Normalize() (DateRange, error) {
	full := FullRange()
	if r.Start == (Period{}) {
		r.Start = full.Start
	}
	if r.End == (Period{}) {
		r.End = full.End
	}
	if !r.Start.Valid() || !r.End.Valid() {
		return DateRange{}, fmt.Errorf("%w: invalid range %s..%s", ErrInvalidFilter, r.Start, r.End)
	}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: range end %s before start %s", ErrInvalidFilter, r.End, r.Start)
	}
	if r.Start.Before(full.Start) {
		r.Start = full.Start
	}
	if r.End.After(full.End) {
		r.End = full.End
	}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("%w: range %s..%s outside %d-%d", ErrInvalidFilter, r.Start, r.End, MinYear, MaxYear)
	}
	return r, nil
}

func (r DateRange) Contains(p Period) bool {
	return !p.Before(r.Start) && !p.After(r.End)
}

// ContainsCode 按 YYYYMM 整数判断
func (r DateRange) ContainsCode(code int) bool {
	return code >= r.Start.Code() && code <= r.End.Code()
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}
