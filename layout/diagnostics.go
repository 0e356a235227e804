package layout

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Diagnostic 记录一个被跳过的元素。
type Diagnostic struct {
	Element string `json:"element"`
	Page    int    `json:"page"` // 从 1 开始
	Reason  string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("第 %d 页 %s: %s", d.Page, d.Element, d.Reason)
}

// Diagnostics 收集渲染过程中被跳过的元素；它们从不中断渲染。
type Diagnostics []Diagnostic

// Add appends a skip record.
func (d *Diagnostics) Add(element string, page int, reason string) {
	*d = append(*d, Diagnostic{Element: element, Page: page, Reason: reason})
}

// Err 将全部诊断合并为一个 error；没有诊断时返回 nil。
func (d Diagnostics) Err() error {
	var err error
	for _, item := range d {
		err = multierr.Append(err, errors.New(item.String()))
	}
	return err
}
