package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"supply-planning-api/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat .xlsx / .csv 以外のファイル
	ErrUnsupportedFormat = errors.New("サポートされていないファイル形式です")
	// ErrMissingColumns 必須列（期間・アイテム数）が見つからない
	ErrMissingColumns = errors.New("必須列が見つかりません")
	// ErrNoData ヘッダー以外のデータ行が無い
	ErrNoData = errors.New("データ行がありません")
)

var (
	periodColumns  = []string{"period", "date", "day", "日付", "期間"}
	ordersColumns  = []string{"orders", "order_count", "ordercount", "注文数"}
	itemsColumns   = []string{"items", "item_count", "itemcount", "quantity", "数量", "販売数"}
	revenueColumns = []string{"revenue", "sales_amount", "amount", "売上", "売上金額"}

	dateLayouts = []string{"2006-01-02", "2006/01/02", "2006/1/2", "2006-01-02 15:04:05", time.RFC3339, "01-02-06", "1/2/06"}
)

// ImportStats 取り込み時の行数集計
type ImportStats struct {
	RowsRead    int
	RowsSkipped int
}

// DemandImportService 需要実績ファイル（.xlsx / .csv）の取り込みサービス
type DemandImportService struct {
	logger *zap.Logger
}

// NewDemandImportService 新しい取り込みサービスを作成
func NewDemandImportService(logger *zap.Logger) *DemandImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemandImportService{logger: logger}
}

// ImportFile ファイル名の拡張子で形式を判定し、日次実績に変換する
func (s *DemandImportService) ImportFile(fileName string, r io.Reader) ([]models.DemandObservation, ImportStats, error) {
	var rows [][]string

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, ImportStats{}, fmt.Errorf("Excelファイルの読み込みに失敗: %w", err)
		}
		defer f.Close()

		rows, err = f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, ImportStats{}, fmt.Errorf("Excelシートの行取得に失敗: %w", err)
		}
	case ".csv":
		reader := csv.NewReader(r)
		reader.FieldsPerRecord = -1
		var err error
		rows, err = reader.ReadAll()
		if err != nil {
			return nil, ImportStats{}, fmt.Errorf("CSVファイルの解析に失敗: %w", err)
		}
	default:
		return nil, ImportStats{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileName)
	}

	observations, stats, err := s.ParseRows(rows)
	if err != nil {
		return nil, stats, err
	}

	s.logger.Info("demand file imported",
		zap.String("file", fileName),
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("rows_skipped", stats.RowsSkipped),
		zap.Int("periods", len(observations)),
	)
	return observations, stats, nil
}

// ParseRows ヘッダー付きの行データを日次実績に変換する。
// 同じ日付の行は合算し、日付が解釈できない行はスキップする。
func (s *DemandImportService) ParseRows(rows [][]string) ([]models.DemandObservation, ImportStats, error) {
	if len(rows) < 2 {
		return nil, ImportStats{}, ErrNoData
	}

	header := rows[0]
	periodIdx := findColumn(header, periodColumns...)
	itemsIdx := findColumn(header, itemsColumns...)
	ordersIdx := findColumn(header, ordersColumns...)
	revenueIdx := findColumn(header, revenueColumns...)

	var missing []string
	if periodIdx == -1 {
		missing = append(missing, "period")
	}
	if itemsIdx == -1 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		s.logger.Warn("required columns not found", zap.Strings("header", header), zap.Strings("missing", missing))
		return nil, ImportStats{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	type dayTotal struct {
		orders  int64
		items   int64
		revenue decimal.Decimal
	}
	totals := make(map[string]*dayTotal)
	var order []string
	stats := ImportStats{}

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		stats.RowsRead++

		period, ok := normalizePeriod(cell(row, periodIdx))
		if !ok {
			stats.RowsSkipped++
			continue
		}

		total, exists := totals[period]
		if !exists {
			total = &dayTotal{revenue: decimal.Zero}
			totals[period] = total
			order = append(order, period)
		}
		total.items = addCount(total.items, parseCount(cell(row, itemsIdx)))
		total.orders = addCount(total.orders, parseCount(cell(row, ordersIdx)))
		total.revenue = total.revenue.Add(decimal.NewFromFloat(parseAmount(cell(row, revenueIdx))))
	}

	observations := make([]models.DemandObservation, 0, len(order))
	for _, period := range order {
		total := totals[period]
		observations = append(observations, models.DemandObservation{
			Period:     period,
			OrderCount: total.orders,
			ItemCount:  total.items,
			Revenue:    total.revenue.InexactFloat64(),
		})
	}

	return TrimDailySeries(observations, len(observations)), stats, nil
}

// findColumn 候補のいずれかに一致する最初の列インデックスを返す
func findColumn(header []string, candidates ...string) int {
	for _, candidate := range candidates {
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), candidate) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func normalizePeriod(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(periodLayout), true
		}
	}
	return "", false
}

// parseCount 数量を非負の整数に変換（解釈できない値は0）
func parseCount(value string) int64 {
	f := math.Round(parseAmount(value))
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

// parseAmount 金額・数量を非負の実数に変換（解釈できない値は0）
func parseAmount(value string) float64 {
	value = strings.ReplaceAll(value, ",", "")
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return sanitize(f)
}
