package engine

import "time"

// nationalHolidays 日本国民祝日表（2024–2026，含振替休日与国民の休日）
var nationalHolidays = map[time.Time]string{}

func init() {
	for _, h := range []struct {
		y, m, d int
		name    string
	}{
		{2024, 1, 1, "元日"},
		{2024, 1, 8, "成人の日"},
		{2024, 2, 11, "建国記念の日"},
		{2024, 2, 12, "振替休日"},
		{2024, 2, 23, "天皇誕生日"},
		{2024, 3, 20, "春分の日"},
		{2024, 4, 29, "昭和の日"},
		{2024, 5, 3, "憲法記念日"},
		{2024, 5, 4, "みどりの日"},
		{2024, 5, 5, "こどもの日"},
		{2024, 5, 6, "振替休日"},
		{2024, 7, 15, "海の日"},
		{2024, 8, 11, "山の日"},
		{2024, 8, 12, "振替休日"},
		{2024, 9, 16, "敬老の日"},
		{2024, 9, 22, "秋分の日"},
		{2024, 9, 23, "振替休日"},
		{2024, 10, 14, "スポーツの日"},
		{2024, 11, 3, "文化の日"},
		{2024, 11, 4, "振替休日"},
		{2024, 11, 23, "勤労感謝の日"},

		{2025, 1, 1, "元日"},
		{2025, 1, 13, "成人の日"},
		{2025, 2, 11, "建国記念の日"},
		{2025, 2, 23, "天皇誕生日"},
		{2025, 2, 24, "振替休日"},
		{2025, 3, 20, "春分の日"},
		{2025, 4, 29, "昭和の日"},
		{2025, 5, 3, "憲法記念日"},
		{2025, 5, 4, "みどりの日"},
		{2025, 5, 5, "こどもの日"},
		{2025, 5, 6, "振替休日"},
		{2025, 7, 21, "海の日"},
		{2025, 8, 11, "山の日"},
		{2025, 9, 15, "敬老の日"},
		{2025, 9, 23, "秋分の日"},
		{2025, 10, 13, "スポーツの日"},
		{2025, 11, 3, "文化の日"},
		{2025, 11, 23, "勤労感謝の日"},
		{2025, 11, 24, "振替休日"},

		{2026, 1, 1, "元日"},
		{2026, 1, 12, "成人の日"},
		{2026, 2, 11, "建国記念の日"},
		{2026, 2, 23, "天皇誕生日"},
		{2026, 3, 20, "春分の日"},
		{2026, 4, 29, "昭和の日"},
		{2026, 5, 3, "憲法記念日"},
		{2026, 5, 4, "みどりの日"},
		{2026, 5, 5, "こどもの日"},
		{2026, 5, 6, "振替休日"},
		{2026, 7, 20, "海の日"},
		{2026, 8, 11, "山の日"},
		{2026, 9, 21, "敬老の日"},
		{2026, 9, 22, "国民の休日"},
		{2026, 9, 23, "秋分の日"},
		{2026, 10, 12, "スポーツの日"},
		{2026, 11, 3, "文化の日"},
		{2026, 11, 23, "勤労感謝の日"},
	} {
		nationalHolidays[Date(h.y, time.Month(h.m), h.d)] = h.name
	}
}
