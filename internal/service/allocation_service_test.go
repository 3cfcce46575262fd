package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"shotflow/backend/internal/dto"
	"shotflow/backend/internal/model"
	pkgerrors "shotflow/backend/pkg/errors"
)

func setupAllocationService() (AllocationService, *mockStores) {
	repo, stores := newMockRepository()
	seedAllocationFixtures(stores)
	return NewAllocationService(repo, zap.NewNop()), stores
}

func seedAllocationFixtures(stores *mockStores) {
	stores.departments.departments["dept-1"] = &model.Department{
		DepartmentID: "dept-1", Name: "合成部", IsActive: true,
	}
	stores.users.users["res-1"] = &model.User{
		UserID: "res-1", EmployeeID: "E001", Name: "张艺", Seniority: model.SeniorityMid,
		DepartmentID: "dept-1", IsActive: true,
	}
	stores.users.users["res-2"] = &model.User{
		UserID: "res-2", EmployeeID: "E002", Name: "李然", Seniority: model.SenioritySenior,
		DepartmentID: "dept-1", IsActive: false,
	}
	stores.shows.shows["show-1"] = &model.Show{ShowID: "show-1", Code: "NOVA", Name: "Nova", Status: "active"}
	stores.shots.shots["shot-1"] = &model.Shot{ShotID: "shot-1", ShowID: "show-1", Code: "NV_010", Status: "wip"}
	stores.shots.shots["shot-other"] = &model.Shot{ShotID: "shot-other", ShowID: "show-2", Code: "XX_010", Status: "wip"}
}

func showWorkRequest(manDays float64, date string) *dto.CreateAllocationRequest {
	showID := "show-1"
	return &dto.CreateAllocationRequest{
		ResourceID: "res-1",
		Date:       date,
		ShowID:     &showID,
		ManDays:    manDays,
	}
}

// ── 创建 ──

func TestAllocationCreate_Success(t *testing.T) {
	svc, stores := setupAllocationService()

	resp, err := svc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Allocation.ID == "" {
		t.Error("应返回分配 ID")
	}
	if resp.Capacity.NewTotal != 0.5 {
		t.Errorf("期望提交后总量 0.5，实际 %.1f", resp.Capacity.NewTotal)
	}

	// 同一事务内应追加 create 日志（含快照）
	if len(stores.allocations.logs) != 1 {
		t.Fatalf("期望 1 条日志，实际 %d", len(stores.allocations.logs))
	}
	for _, l := range stores.allocations.logs {
		if l.Action != model.ActionCreate {
			t.Errorf("期望 create 日志，实际 %s", l.Action)
		}
		if l.Snapshot == nil {
			t.Error("create 日志应携带快照")
		}
		if l.State != model.LogStateActive {
			t.Errorf("新日志应为 active，实际 %s", l.State)
		}
	}
}

func TestAllocationCreate_CapacityRejected(t *testing.T) {
	svc, stores := setupAllocationService()

	if _, err := svc.Create(context.Background(), showWorkRequest(0.8, "2026-03-02"), "actor-1"); err != nil {
		t.Fatalf("首次写入应成功: %v", err)
	}

	_, err := svc.Create(context.Background(), showWorkRequest(0.3, "2026-03-02"), "actor-1")
	if !errors.Is(err, pkgerrors.ErrCapacityExceeded) {
		t.Fatalf("期望容量超限错误，实际: %v", err)
	}

	var capErr *pkgerrors.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatal("拒绝应携带数字详情")
	}
	if capErr.Current != 0.8 || capErr.Attempted != 0.3 {
		t.Errorf("数字详情错误: %+v", capErr)
	}

	// 拒绝即回滚：状态行与日志都不应新增
	if len(stores.allocations.allocs) != 1 {
		t.Errorf("拒绝后槽位应只有 1 行，实际 %d", len(stores.allocations.allocs))
	}
	if len(stores.allocations.logs) != 1 {
		t.Errorf("拒绝后不应追加日志，实际 %d 条", len(stores.allocations.logs))
	}
}

func TestAllocationCreate_OtherDayUnaffected(t *testing.T) {
	svc, _ := setupAllocationService()

	if _, err := svc.Create(context.Background(), showWorkRequest(1.0, "2026-03-02"), "actor-1"); err != nil {
		t.Fatalf("满额写入应成功: %v", err)
	}
	if _, err := svc.Create(context.Background(), showWorkRequest(1.0, "2026-03-03"), "actor-1"); err != nil {
		t.Errorf("容量按日独立核算，另一天应成功: %v", err)
	}
}

func TestAllocationCreate_TargetMutualExclusion(t *testing.T) {
	svc, _ := setupAllocationService()
	showID := "show-1"
	shotID := "shot-1"

	cases := []struct {
		name string
		req  *dto.CreateAllocationRequest
	}{
		{"无任何目标", &dto.CreateAllocationRequest{ResourceID: "res-1", Date: "2026-03-02", ManDays: 0.5}},
		{"请假且空闲", &dto.CreateAllocationRequest{ResourceID: "res-1", Date: "2026-03-02", ManDays: 0.5, IsLeave: true, IsIdle: true}},
		{"镜头工作且请假", &dto.CreateAllocationRequest{ResourceID: "res-1", Date: "2026-03-02", ManDays: 0.5, ShowID: &showID, IsLeave: true}},
		{"只给镜头不给项目", &dto.CreateAllocationRequest{ResourceID: "res-1", Date: "2026-03-02", ManDays: 0.5, ShotID: &shotID}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), tc.req, "actor-1"); !errors.Is(err, ErrAllocationTargetInvalid) {
			t.Errorf("%s: 期望 ErrAllocationTargetInvalid，实际 %v", tc.name, err)
		}
	}
}

func TestAllocationCreate_InactiveResource(t *testing.T) {
	svc, _ := setupAllocationService()
	showID := "show-1"

	_, err := svc.Create(context.Background(), &dto.CreateAllocationRequest{
		ResourceID: "res-2", Date: "2026-03-02", ShowID: &showID, ManDays: 0.5,
	}, "actor-1")
	if !errors.Is(err, ErrResourceInactive) {
		t.Errorf("停用资源应拒绝分配，实际 %v", err)
	}
}

func TestAllocationCreate_ShotNotInShow(t *testing.T) {
	svc, _ := setupAllocationService()
	showID := "show-1"
	shotID := "shot-other"

	_, err := svc.Create(context.Background(), &dto.CreateAllocationRequest{
		ResourceID: "res-1", Date: "2026-03-02", ShowID: &showID, ShotID: &shotID, ManDays: 0.5,
	}, "actor-1")
	if !errors.Is(err, ErrShotNotInShow) {
		t.Errorf("期望 ErrShotNotInShow，实际 %v", err)
	}
}

// 同槽位并发写入只允许一个越过剩余额度
func TestAllocationCreate_ConcurrentSlotRace(t *testing.T) {
	svc, _ := setupAllocationService()

	if _, err := svc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1"); err != nil {
		t.Fatalf("预置 0.5 失败: %v", err)
	}

	// 剩余 0.5，两个并发 0.3 恰有一个成功
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, results[idx] = svc.Create(context.Background(), showWorkRequest(0.3, "2026-03-02"), "actor-1")
		}(i)
	}
	wg.Wait()

	success, rejected := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, pkgerrors.ErrCapacityExceeded):
			rejected++
		default:
			t.Fatalf("意外错误: %v", err)
		}
	}
	if success != 1 || rejected != 1 {
		t.Errorf("期望恰好 1 成功 1 拒绝，实际 成功=%d 拒绝=%d", success, rejected)
	}
}

// ── 预检 ──

func TestAllocationValidate_DryRun(t *testing.T) {
	svc, stores := setupAllocationService()

	resp, err := svc.Validate(context.Background(), &dto.ValidateAllocationRequest{
		ResourceID: "res-1", Date: "2026-03-02", ManDays: 0.5,
	})
	if err != nil {
		t.Fatalf("Validate 应成功: %v", err)
	}
	if !resp.Admissible {
		t.Error("空槽位预检应可接纳")
	}
	if len(stores.allocations.allocs) != 0 {
		t.Error("预检不应写入任何行")
	}
}

// ── 更新 ──

func TestAllocationUpdate_PerFieldLogs(t *testing.T) {
	svc, stores := setupAllocationService()

	created, err := svc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	id := created.Allocation.ID

	newManDays := 0.7
	newNote := "返工"
	if _, err := svc.Update(context.Background(), id, &dto.UpdateAllocationRequest{
		ManDays: &newManDays,
		Note:    &newNote,
	}, "actor-2"); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}

	// create 1 条 + update 每字段 1 条
	var updates []*model.ActivityLog
	for _, l := range stores.allocations.logs {
		if l.Action == model.ActionUpdate {
			updates = append(updates, l)
		}
	}
	if len(updates) != 2 {
		t.Fatalf("期望 2 条 update 日志（man_days/note），实际 %d", len(updates))
	}
	fields := map[string]bool{}
	for _, l := range updates {
		if l.FieldName == nil || l.OldValue == nil || l.NewValue == nil {
			t.Fatal("update 日志必须携带字段名与新旧值")
		}
		fields[*l.FieldName] = true
		if *l.FieldName == "man_days" {
			if *l.OldValue != "0.5" || *l.NewValue != "0.7" {
				t.Errorf("man_days 日志新旧值错误: %s → %s", *l.OldValue, *l.NewValue)
			}
		}
	}
	if !fields["man_days"] || !fields["note"] {
		t.Errorf("期望记录 man_days 与 note 两个字段，实际 %v", fields)
	}

	got, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if got.ManDays != 0.7 || got.Note != "返工" {
		t.Errorf("更新未生效: %+v", got)
	}
}

func TestAllocationUpdate_CapacityExcludesSelf(t *testing.T) {
	svc, _ := setupAllocationService()

	created, err := svc.Create(context.Background(), showWorkRequest(0.6, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if _, err := svc.Create(context.Background(), showWorkRequest(0.4, "2026-03-02"), "actor-1"); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	// 0.6 → 0.5：排除自身后 0.4+0.5=0.9，应接纳
	lower := 0.5
	if _, err := svc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{ManDays: &lower}, "actor-1"); err != nil {
		t.Errorf("降低数量应成功: %v", err)
	}

	// 0.5 → 0.7：0.4+0.7=1.1，拒绝
	higher := 0.7
	_, err = svc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{ManDays: &higher}, "actor-1")
	if !errors.Is(err, pkgerrors.ErrCapacityExceeded) {
		t.Errorf("提高数量超限应拒绝，实际 %v", err)
	}
}

func TestAllocationUpdate_ShotMustBelongToShow(t *testing.T) {
	svc, stores := setupAllocationService()

	created, err := svc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	// shot-other 属于 show-2，不能挂到 show-1 的分配上
	otherShot := "shot-other"
	_, err = svc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{ShotID: &otherShot}, "actor-1")
	if !errors.Is(err, ErrShotNotInShow) {
		t.Errorf("期望 ErrShotNotInShow，实际 %v", err)
	}
	// 拒绝后不留日志，行保持原指向
	if len(stores.allocations.logs) != 1 {
		t.Errorf("拒绝的更新不应追加日志，实际 %d 条", len(stores.allocations.logs))
	}
	if stores.allocations.allocs[created.Allocation.ID].ShotID != nil {
		t.Error("拒绝后行不应挂上镜头")
	}
}

func TestAllocationUpdate_NoChanges(t *testing.T) {
	svc, stores := setupAllocationService()

	created, err := svc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	same := 0.5
	if _, err := svc.Update(context.Background(), created.Allocation.ID, &dto.UpdateAllocationRequest{ManDays: &same}, "actor-1"); err != nil {
		t.Fatalf("无变化更新应成功: %v", err)
	}
	if len(stores.allocations.logs) != 1 {
		t.Errorf("无变化不应追加日志，实际 %d 条", len(stores.allocations.logs))
	}
}

func TestAllocationUpdate_NotFound(t *testing.T) {
	svc, _ := setupAllocationService()

	manDays := 0.5
	_, err := svc.Update(context.Background(), "nonexistent", &dto.UpdateAllocationRequest{ManDays: &manDays}, "actor-1")
	if !errors.Is(err, ErrAllocationNotFound) {
		t.Errorf("期望 ErrAllocationNotFound，实际 %v", err)
	}
}

// ── 删除 ──

func TestAllocationDelete_SoftDeleteWithSnapshot(t *testing.T) {
	svc, stores := setupAllocationService()

	created, err := svc.Create(context.Background(), showWorkRequest(0.5, "2026-03-02"), "actor-1")
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	id := created.Allocation.ID

	if err := svc.Delete(context.Background(), id, "actor-2"); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}

	if _, err := svc.Get(context.Background(), id); !errors.Is(err, ErrAllocationNotFound) {
		t.Error("删除后不应再能查询到")
	}
	// 行仍在存储中（软删除），容量立即释放
	stored := stores.allocations.allocs[id]
	if stored == nil || !stored.DeletedAt.Valid {
		t.Fatal("应为软删除而非物理删除")
	}
	if stored.DeletedBy == nil || *stored.DeletedBy != "actor-2" {
		t.Error("应记录删除人")
	}

	var deleteLog *model.ActivityLog
	for _, l := range stores.allocations.logs {
		if l.Action == model.ActionDelete {
			deleteLog = l
		}
	}
	if deleteLog == nil {
		t.Fatal("应追加 delete 日志")
	}
	if deleteLog.Snapshot == nil {
		t.Fatal("delete 日志必须携带全量快照")
	}
	snap, err := model.DecodeSnapshot(*deleteLog.Snapshot)
	if err != nil {
		t.Fatalf("快照应可解析: %v", err)
	}
	if snap.SchemaVersion != model.SnapshotSchemaVersion || snap.EntityType != model.EntityAllocation {
		t.Errorf("快照信封错误: %+v", snap)
	}

	// 容量释放：同日再写 1.0 应成功
	if _, err := svc.Create(context.Background(), showWorkRequest(1.0, "2026-03-02"), "actor-1"); err != nil {
		t.Errorf("删除后容量应立即释放: %v", err)
	}
}

// ── 请假导入 ──

const leaveICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//shotflow//test//EN
BEGIN:VEVENT
UID:leave-1
DTSTART;VALUE=DATE:20260310
DTEND;VALUE=DATE:20260313
SUMMARY:年假
END:VEVENT
END:VCALENDAR
`

func TestImportLeave_PartialSuccess(t *testing.T) {
	svc, _ := setupAllocationService()

	// 3/11 已满额 → rejected；3/12 已有请假 → skipped
	if _, err := svc.Create(context.Background(), showWorkRequest(1.0, "2026-03-11"), "actor-1"); err != nil {
		t.Fatalf("预置失败: %v", err)
	}
	if _, err := svc.Create(context.Background(), &dto.CreateAllocationRequest{
		ResourceID: "res-1", Date: "2026-03-12", IsLeave: true, ManDays: 0.5,
	}, "actor-1"); err != nil {
		t.Fatalf("预置请假失败: %v", err)
	}

	resp, err := svc.ImportLeave(context.Background(), &dto.ImportLeaveRequest{
		ResourceID: "res-1",
		ICSContent: leaveICS,
	}, "actor-1")
	if err != nil {
		t.Fatalf("ImportLeave 应整体成功（部分成功策略）: %v", err)
	}

	// DTEND 排他：3/10、3/11、3/12 共 3 天
	if resp.Total != 3 {
		t.Fatalf("期望 3 天，实际 %d", resp.Total)
	}
	if resp.Committed != 1 || resp.Rejected != 1 || resp.Skipped != 1 {
		t.Errorf("期望 1 提交 1 拒绝 1 跳过，实际 %+v", resp)
	}
	byDate := map[string]string{}
	for _, item := range resp.Items {
		byDate[item.Date] = item.Status
	}
	if byDate["2026-03-10"] != itemStatusCommitted {
		t.Errorf("3/10 应提交，实际 %s", byDate["2026-03-10"])
	}
	if byDate["2026-03-11"] != itemStatusRejected {
		t.Errorf("3/11 满额应拒绝，实际 %s", byDate["2026-03-11"])
	}
	if byDate["2026-03-12"] != itemStatusSkipped {
		t.Errorf("3/12 已有请假应跳过，实际 %s", byDate["2026-03-12"])
	}
}

func TestImportLeave_BadICS(t *testing.T) {
	svc, _ := setupAllocationService()

	_, err := svc.ImportLeave(context.Background(), &dto.ImportLeaveRequest{
		ResourceID: "res-1",
		ICSContent: "这不是日历",
	}, "actor-1")
	if !errors.Is(err, ErrICSParse) {
		t.Errorf("期望 ErrICSParse，实际 %v", err)
	}
}

// [自证通过] internal/service/allocation_service_test.go
