package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/model"
	pkgerrors "shotflow/backend/pkg/errors"
)

func setupActivityService() (ActivityService, AllocationService, *mockStores) {
	repo, stores := newMockRepository()
	seedAllocationFixtures(stores)
	return NewActivityService(repo, zap.NewNop()), NewAllocationService(repo, zap.NewNop()), stores
}

// findLog 按实体与动作定位最新一条日志
func findLog(t *testing.T, stores *mockStores, entityID, action string) *model.ActivityLog {
	t.Helper()
	var found *model.ActivityLog
	for _, l := range stores.allocations.logs {
		if l.EntityID == entityID && l.Action == action {
			if found == nil || l.CreatedAt.After(found.CreatedAt) {
				found = l
			}
		}
	}
	if found == nil {
		t.Fatalf("未找到 %s 的 %s 日志", entityID, action)
	}
	return found
}

// ── 查询 ──

func TestActivityList_ToDateInclusive(t *testing.T) {
	activitySvc, allocSvc, _ := setupActivityService()

	if _, err := allocSvc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1"); err != nil {
		t.Fatalf("预置失败: %v", err)
	}

	// to 取当天仍应命中当天写入的日志（闭区间）
	today := time.Now().UTC().Format("2006-01-02")
	items, total, err := activitySvc.List(context.Background(), &dto.ActivityLogListRequest{To: today})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("to 当天应命中当天日志，实际 total=%d", total)
	}
}

func TestActivityList_KeywordFilter(t *testing.T) {
	activitySvc, allocSvc, _ := setupActivityService()

	if _, err := allocSvc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1"); err != nil {
		t.Fatalf("预置失败: %v", err)
	}

	_, total, err := activitySvc.List(context.Background(), &dto.ActivityLogListRequest{Keyword: "0.5"})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 1 {
		t.Errorf("关键字 0.5 应命中创建日志，实际 total=%d", total)
	}

	_, total, err = activitySvc.List(context.Background(), &dto.ActivityLogListRequest{Keyword: "不存在的词"})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 0 {
		t.Errorf("无关关键字不应命中，实际 total=%d", total)
	}
}

// ── 撤销：create ──

func TestUndo_Create(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	entry := findLog(t, stores, created.Allocation.ID, model.ActionCreate)

	resp, err := activitySvc.Undo(context.Background(), entry.LogID, "actor-2")
	if err != nil {
		t.Fatalf("Undo 应成功: %v", err)
	}
	if resp.UndoneLogID != entry.LogID {
		t.Errorf("UndoneLogID 期望 %s，实际 %s", entry.LogID, resp.UndoneLogID)
	}

	// 行被软删除
	if _, err := allocSvc.Get(context.Background(), created.Allocation.ID); !errors.Is(err, ErrAllocationNotFound) {
		t.Errorf("撤销创建后行应不可见，实际 %v", err)
	}
	// 原条目翻转为 reversed
	if stores.allocations.logs[entry.LogID].State != model.LogStateReversed {
		t.Error("原条目应翻转为 reversed")
	}
	// undo 条目指回原条目
	undoLog := stores.allocations.logs[resp.UndoLogID]
	if undoLog == nil || undoLog.ReversesID == nil || *undoLog.ReversesID != entry.LogID {
		t.Error("undo 条目应通过 reverses_id 指回原条目")
	}
	if undoLog.Action != model.ActionUndo || undoLog.ActorID != "actor-2" {
		t.Errorf("undo 条目动作/操作者不符: %+v", undoLog)
	}
}

// ── 撤销：update ──

func TestUndo_UpdateRestoresField(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	higher := 0.7
	if _, err := allocSvc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{ManDays: &higher}, "actor-1"); err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	entry := findLog(t, stores, created.Allocation.ID, model.ActionUpdate)

	resp, err := activitySvc.Undo(context.Background(), entry.LogID, "actor-1")
	if err != nil {
		t.Fatalf("Undo 应成功: %v", err)
	}

	got, err := allocSvc.Get(context.Background(), created.Allocation.ID)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if got.ManDays != 0.5 {
		t.Errorf("字段应还原为 0.5，实际 %.1f", got.ManDays)
	}
	// undo 条目的新旧值与原条目互换
	undoLog := stores.allocations.logs[resp.UndoLogID]
	if undoLog.OldValue == nil || *undoLog.OldValue != "0.7" || undoLog.NewValue == nil || *undoLog.NewValue != "0.5" {
		t.Errorf("undo 条目新旧值应互换: old=%v new=%v", undoLog.OldValue, undoLog.NewValue)
	}
}

func TestUndo_UpdateCapacityRecheck(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.3, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	lower := 0.2
	if _, err := allocSvc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{ManDays: &lower}, "actor-1"); err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	// 他人把同槽位占掉 0.8：0.2 + 0.8 = 1.0 刚好满
	if _, err := allocSvc.Create(context.Background(), showWorkRequest(0.8, "2026-03-02"), "actor-2"); err != nil {
		t.Fatalf("预置失败: %v", err)
	}

	entry := findLog(t, stores, created.Allocation.ID, model.ActionUpdate)
	// 还原到 0.3 将使槽位达到 1.1
	_, err = activitySvc.Undo(context.Background(), entry.LogID, "actor-1")
	if !errors.Is(err, pkgerrors.ErrCapacityExceeded) {
		t.Errorf("还原超容量应拒绝，实际 %v", err)
	}
	// 拒绝后原条目保持 active，可待槽位腾出后重试
	if stores.allocations.logs[entry.LogID].State != model.LogStateActive {
		t.Error("容量拒绝后原条目应保持 active")
	}
}

func TestUndo_UpdateShotTargetRecheck(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	showID, shotID := "show-1", "shot-1"
	created, err := allocSvc.Create(context.Background(), &dto.CreateAllocationRequest{
		ResourceID: "res-1", Date: "2026-03-02", ShowID: &showID, ShotID: &shotID, ManDays: 0.5,
	}, "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	// 整体改指向 show-2/shot-other（配套一致）
	newShow, newShot := "show-2", "shot-other"
	stores.shows.shows["show-2"] = &model.Show{ShowID: "show-2", Code: "VEGA", Name: "Vega", Status: "active"}
	if _, err := allocSvc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{
		ShowID: &newShow, ShotID: &newShot,
	}, "actor-1"); err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	// 单独撤销 shot_id 条目会还原出 shot-1 × show-2 的组合，
	// 正向路径拒绝的镜头归属不能借撤销复活
	var shotEntry *model.ActivityLog
	for _, l := range stores.allocations.logs {
		if l.EntityID == created.Allocation.ID && l.Action == model.ActionUpdate &&
			l.FieldName != nil && *l.FieldName == "shot_id" {
			shotEntry = l
		}
	}
	if shotEntry == nil {
		t.Fatal("未找到 shot_id 的 update 日志")
	}
	_, err = activitySvc.Undo(context.Background(), shotEntry.LogID, "actor-1")
	if !errors.Is(err, ErrShotNotInShow) {
		t.Errorf("期望 ErrShotNotInShow，实际 %v", err)
	}
	// 拒绝后原条目保持 active，行指向不变
	if stores.allocations.logs[shotEntry.LogID].State != model.LogStateActive {
		t.Error("归属拒绝后原条目应保持 active")
	}
	row := stores.allocations.allocs[created.Allocation.ID]
	if row.ShotID == nil || *row.ShotID != "shot-other" {
		t.Errorf("行指向应保持 shot-other，实际 %v", row.ShotID)
	}
}

// ── 撤销：delete ──

func TestUndo_DeleteRestoresRow(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.6, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	if err := allocSvc.Delete(context.Background(), created.Allocation.ID, "actor-1"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	entry := findLog(t, stores, created.Allocation.ID, model.ActionDelete)

	if _, err := activitySvc.Undo(context.Background(), entry.LogID, "actor-2"); err != nil {
		t.Fatalf("Undo 应成功: %v", err)
	}

	got, err := allocSvc.Get(context.Background(), created.Allocation.ID)
	if err != nil {
		t.Fatalf("撤销删除后行应可见: %v", err)
	}
	if got.ManDays != 0.6 {
		t.Errorf("业务字段应与删除前一致，实际 man_days=%.1f", got.ManDays)
	}
	stored := stores.allocations.allocs[created.Allocation.ID]
	if stored.DeletedAt.Valid || stored.DeletedBy != nil {
		t.Error("恢复后软删除标记应清空")
	}
}

func TestUndo_DeleteCapacityViolation(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.6, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	if err := allocSvc.Delete(context.Background(), created.Allocation.ID, "actor-1"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	// 删除腾出的容量已被占用
	if _, err := allocSvc.Create(context.Background(), showWorkRequest(0.8, "2026-03-02"), "actor-2"); err != nil {
		t.Fatalf("预置失败: %v", err)
	}

	entry := findLog(t, stores, created.Allocation.ID, model.ActionDelete)
	_, err = activitySvc.Undo(context.Background(), entry.LogID, "actor-1")
	if !errors.Is(err, pkgerrors.ErrCapacityExceeded) {
		t.Errorf("恢复超容量应拒绝，实际 %v", err)
	}
	// 事务回滚：原条目保持 active，行保持删除态
	if stores.allocations.logs[entry.LogID].State != model.LogStateActive {
		t.Error("容量拒绝后原条目应保持 active")
	}
	if !stores.allocations.allocs[created.Allocation.ID].DeletedAt.Valid {
		t.Error("容量拒绝后行应保持删除态")
	}
}

// ── 撤销：边界 ──

func TestUndo_SingleUse(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	entry := findLog(t, stores, created.Allocation.ID, model.ActionCreate)

	if _, err := activitySvc.Undo(context.Background(), entry.LogID, "actor-1"); err != nil {
		t.Fatalf("首次撤销应成功: %v", err)
	}
	if _, err := activitySvc.Undo(context.Background(), entry.LogID, "actor-1"); !errors.Is(err, ErrAlreadyReversed) {
		t.Errorf("二次撤销应拒绝，实际 %v", err)
	}
}

func TestUndo_UndoEntryNotUndoable(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	entry := findLog(t, stores, created.Allocation.ID, model.ActionCreate)
	resp, err := activitySvc.Undo(context.Background(), entry.LogID, "actor-1")
	if err != nil {
		t.Fatalf("撤销失败: %v", err)
	}

	if _, err := activitySvc.Undo(context.Background(), resp.UndoLogID, "actor-1"); !errors.Is(err, ErrUndoUnsupported) {
		t.Errorf("undo 条目不可再撤销，实际 %v", err)
	}
}

func TestUndo_TargetGone(t *testing.T) {
	activitySvc, allocSvc, stores := setupActivityService()

	created, err := allocSvc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	higher := 0.7
	if _, err := allocSvc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{ManDays: &higher}, "actor-1"); err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if err := allocSvc.Delete(context.Background(), created.Allocation.ID, "actor-1"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}

	entry := findLog(t, stores, created.Allocation.ID, model.ActionUpdate)
	if _, err := activitySvc.Undo(context.Background(), entry.LogID, "actor-1"); !errors.Is(err, ErrUndoTargetGone) {
		t.Errorf("目标行已删除应报 ErrUndoTargetGone，实际 %v", err)
	}
}

func TestUndo_NonAllocationEntity(t *testing.T) {
	activitySvc, _, stores := setupActivityService()

	stores.allocations.logs["log-foreign"] = &model.ActivityLog{
		LogID:      "log-foreign",
		EntityType: "delivery",
		EntityID:   "sched-1",
		Action:     model.ActionCreate,
		ActorID:    "actor-1",
		State:      model.LogStateActive,
		CreatedAt:  time.Now(),
	}

	if _, err := activitySvc.Undo(context.Background(), "log-foreign", "actor-1"); !errors.Is(err, ErrUndoUnsupported) {
		t.Errorf("非分配实体不支持撤销，实际 %v", err)
	}
}

func TestUndo_LogNotFound(t *testing.T) {
	activitySvc, _, _ := setupActivityService()

	if _, err := activitySvc.Undo(context.Background(), "nonexistent", "actor-1"); !errors.Is(err, ErrLogNotFound) {
		t.Errorf("期望 ErrLogNotFound，实际 %v", err)
	}
}

// [自证通过] internal/service/activity_service_test.go
