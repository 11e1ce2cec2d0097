package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/esl365/aijox.com-sub004/internal/model"
	"github.com/esl365/aijox.com-sub004/internal/onboarding"
	"github.com/esl365/aijox.com-sub004/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// exportPageSize 每批读取的用户数
const exportPageSize = 500

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
type ExportService interface {
	// ExportOnboarding 导出所有用户的入驻状态为 Excel
	ExportOnboarding(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// onboardingRow 导出的一行
type onboardingRow struct {
	user  model.User
	state onboarding.State
}

// ═══════════════════════════════════════════════════════════
// ExportOnboarding — 导出入驻漏斗
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Onboarding"：姓名 / 邮箱 / 角色 / 是否有资料 / 入驻状态 / 注册时间
//   - Sheet "Summary"：各入驻状态人数
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportOnboarding(ctx context.Context) (*bytes.Buffer, string, error) {
	rows, err := s.collectRows(ctx)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Onboarding"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 24)
	f.SetColWidth(sheetName, "B", "B", 32)
	f.SetColWidth(sheetName, "C", "E", 18)
	f.SetColWidth(sheetName, "F", "F", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"Name", "Email", "Role", "Has Profile", "State", "Signed Up"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	counts := make(map[onboarding.State]int)
	for i, r := range rows {
		row := i + 2
		hasProfile := "-"
		if r.user.Role.RequiresProfile() {
			hasProfile = "no"
			if r.state == onboarding.StateReady {
				hasProfile = "yes"
			}
		}
		f.SetCellValue(sheetName, cell("A", row), r.user.Name)
		f.SetCellValue(sheetName, cell("B", row), r.user.Email)
		f.SetCellValue(sheetName, cell("C", row), r.user.Role.String())
		f.SetCellValue(sheetName, cell("D", row), hasProfile)
		f.SetCellValue(sheetName, cell("E", row), string(r.state))
		f.SetCellValue(sheetName, cell("F", row), r.user.CreatedAt.Format(time.DateTime))
		counts[r.state]++
	}

	// 汇总
	summary := "Summary"
	f.NewSheet(summary)
	f.SetColWidth(summary, "A", "A", 22)
	f.SetCellValue(summary, "A1", "State")
	f.SetCellValue(summary, "B1", "Users")
	f.SetCellStyle(summary, "A1", "B1", headerStyle)
	states := []onboarding.State{
		onboarding.StateRoleUnset,
		onboarding.StateProfileIncomplete,
		onboarding.StateReady,
	}
	for i, st := range states {
		f.SetCellValue(summary, cell("A", i+2), string(st))
		f.SetCellValue(summary, cell("B", i+2), counts[st])
	}
	f.SetCellValue(summary, cell("A", len(states)+2), "total")
	f.SetCellValue(summary, cell("B", len(states)+2), len(rows))

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("onboarding_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// collectRows 分批读取用户并计算入驻状态
func (s *exportService) collectRows(ctx context.Context) ([]onboardingRow, error) {
	var rows []onboardingRow
	for offset := 0; ; offset += exportPageSize {
		users, total, err := s.repo.User.List(ctx, offset, exportPageSize)
		if err != nil {
			s.logger.Error("查询用户列表失败", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
		}

		owners, err := profileOwners(ctx, s.repo, users)
		if err != nil {
			s.logger.Error("批量查询角色资料失败", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", onboarding.ErrStoreUnavailable, err)
		}

		for _, u := range users {
			sess := onboarding.Session{
				Authenticated: true,
				UserID:        u.UserID,
				Role:          u.Role,
				HasProfile:    owners[u.UserID],
			}
			rows = append(rows, onboardingRow{user: u, state: sess.State()})
		}

		if len(users) < exportPageSize || int64(offset+len(users)) >= total {
			return rows, nil
		}
	}
}

// colName 0 起始列号转列名
func colName(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
