package utils

import "sync/atomic"

// 分页默认值，启动时可由配置覆盖
var (
	defaultPageSize atomic.Int64
	maxPageSize     atomic.Int64
)

func init() {
	defaultPageSize.Store(20)
	maxPageSize.Store(100)
}

// SetPageLimits 设置默认每页条数与单页上限，非正数保持原值
func SetPageLimits(def, max int) {
	if max > 0 {
		maxPageSize.Store(int64(max))
	}
	if def > 0 {
		defaultPageSize.Store(int64(def))
	}
	if defaultPageSize.Load() > maxPageSize.Load() {
		defaultPageSize.Store(maxPageSize.Load())
	}
}

// PageLimits 当前的默认条数与上限
func PageLimits() (def, max int) {
	return int(defaultPageSize.Load()), int(maxPageSize.Load())
}

// Pagination 分页请求参数
type Pagination struct {
	Page  int `json:"page" form:"page"`
	Limit int `json:"limit" form:"limit"`
}

// PageResult 分页响应结果
type PageResult struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Normalize 返回补齐默认值并裁剪到上限后的副本
func (p Pagination) Normalize() Pagination {
	def, max := PageLimits()
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

// GetPageOffset 计算分页偏移量
func (p *Pagination) GetPageOffset() (int, int) {
	*p = p.Normalize()
	return (p.Page - 1) * p.Limit, p.Limit
}

// NewPageResult 按实际生效的分页参数组装结果
func NewPageResult(list interface{}, total int64, p Pagination) PageResult {
	p = p.Normalize()
	return PageResult{List: list, Total: total, Page: p.Page, Limit: p.Limit}
}
