package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"

	"github.com/ragayama123/EVM-PM-Tool/internal/engine"
)

// ── CSV 解析器 ──────────────────────────────────────────────
//
// 表头必须包含 date 与 name，type 可选（缺省或未知时为 custom）。
// 日期接受 2006-01-02 与 2006/01/02。
// 编码：UTF-8（可带 BOM），非 UTF-8 时按 Shift_JIS 解码。
// 行级错误不终止解析，以 "第 N 行: 原因" 返回；同一日期以首次出现为准。
// ─────────────────────────────────────────────────────────────

const csvMaxFileSize = 5 * 1024 * 1024 // 5MB

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseHolidayCSV 解析非工作日 CSV，返回有效行与行级错误
func ParseHolidayCSV(r io.Reader) ([]engine.GeneratedHoliday, []string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, csvMaxFileSize))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCSVParse, err)
	}
	content, err := decodeCSV(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCSVParse, err)
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrCSVNoRows
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCSVParse, err)
	}

	cols := map[string]int{"date": -1, "name": -1, "type": -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if idx, ok := cols[key]; ok && idx < 0 {
			cols[key] = i
		}
	}
	if cols["date"] < 0 || cols["name"] < 0 {
		return nil, nil, ErrCSVHeader
	}

	var (
		items   []engine.GeneratedHoliday
		rowErrs []string
		rows    int
	)
	firstRow := make(map[time.Time]int)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCSVParse, err)
		}
		// 空行由 csv.Reader 跳过，行号取自源文件
		line, _ := reader.FieldPos(0)
		if blankRecord(rec) {
			continue
		}
		rows++

		dateText := field(rec, cols["date"])
		if dateText == "" {
			rowErrs = append(rowErrs, fmt.Sprintf("第 %d 行: 日期不能为空", line))
			continue
		}
		date, ok := parseCSVDate(dateText)
		if !ok {
			rowErrs = append(rowErrs, fmt.Sprintf("第 %d 行: 日期「%s」格式错误", line, dateText))
			continue
		}
		name := field(rec, cols["name"])
		if name == "" {
			rowErrs = append(rowErrs, fmt.Sprintf("第 %d 行: 名称不能为空", line))
			continue
		}
		if prev, ok := firstRow[date]; ok {
			rowErrs = append(rowErrs, fmt.Sprintf("第 %d 行: 日期 %s 与第 %d 行重复", line, dateText, prev))
			continue
		}
		firstRow[date] = line

		holidayType := engine.HolidayType(strings.ToLower(field(rec, cols["type"])))
		if !holidayType.Valid() {
			holidayType = engine.HolidayCustom
		}
		items = append(items, engine.GeneratedHoliday{Date: date, Name: name, Type: holidayType})
	}
	if rows == 0 {
		return nil, nil, ErrCSVNoRows
	}
	return items, rowErrs, nil
}

// parseCSVDate 接受 2006-01-02 与 2006/1/2 等写法
func parseCSVDate(s string) (time.Time, bool) {
	for _, layout := range wbsDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return engine.DateOf(d), true
		}
	}
	return time.Time{}, false
}

func decodeCSV(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.New("编码无法识别（支持 UTF-8 / Shift_JIS）")
	}
	return string(decoded), nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
