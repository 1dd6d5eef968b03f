package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medibro/medibro-server/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Analytics periods.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// Overview aggregates a window of dose logs. Missed is the merged
// not-taken bucket (skipped + missed); Skipped counts skips alone so the
// cached summary can keep per-status columns.
type Overview struct {
	TotalScheduled int `json:"totalScheduled"`
	Taken          int `json:"taken"`
	Missed         int `json:"missed"`
	Skipped        int `json:"skipped"`
	Snoozed        int `json:"snoozed"`
	Pending        int `json:"pending"`
	AdherenceRate  int `json:"adherenceRate"`
	OnTime         int `json:"onTime"`
	Late           int `json:"late"`
	AverageDelay   int `json:"averageDelay"`
}

// DailyPoint is one day's adherence for charting.
type DailyPoint struct {
	Date          string `json:"date"`
	AdherenceRate int    `json:"adherenceRate"`
	Total         int    `json:"total"`
	Taken         int    `json:"taken"`
}

// MedicineStat is one medicine's adherence within a window.
type MedicineStat struct {
	MedicineID    string `json:"medicineId"`
	MedicineName  string `json:"medicineName"`
	Total         int    `json:"total"`
	Taken         int    `json:"taken"`
	AdherenceRate int    `json:"adherenceRate"`
}

// DateRange bounds a report window.
type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// AdherenceReport is the full adherence payload for a period.
type AdherenceReport struct {
	Period            string         `json:"period"`
	DateRange         DateRange      `json:"dateRange"`
	Overview          Overview       `json:"overview"`
	DailyData         []DailyPoint   `json:"dailyData"`
	MedicineBreakdown []MedicineStat `json:"medicineBreakdown"`
}

// Insight is one rule-derived observation.
type Insight struct {
	Type        string `json:"type"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// DayStat is one weekday's adherence.
type DayStat struct {
	Day           string `json:"day"`
	AdherenceRate int    `json:"adherenceRate"`
	Total         int    `json:"total"`
	Taken         int    `json:"taken"`
}

// TimeSlotStat is one time-of-day bucket's adherence.
type TimeSlotStat struct {
	TimeSlot      string `json:"timeSlot"`
	AdherenceRate int    `json:"adherenceRate"`
	Total         int    `json:"total"`
	Taken         int    `json:"taken"`
}

// PatternReport is the weekly/time-of-day pattern payload.
type PatternReport struct {
	DayAnalysis  []DayStat      `json:"dayAnalysis"`
	BestDay      *DayStat       `json:"bestDay"`
	WorstDay     *DayStat       `json:"worstDay"`
	TimeAnalysis []TimeSlotStat `json:"timeAnalysis"`
	BestTime     *TimeSlotStat  `json:"bestTime"`
	WorstTime    *TimeSlotStat  `json:"worstTime"`
}

var dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var timeSlotOrder = []string{"morning", "afternoon", "evening", "night"}

func isTakenStatus(status string) bool {
	return status == models.StatusTaken || status == models.StatusTakenLate
}

// timeSlotFor buckets an hour of day: morning 5-11, afternoon 12-16,
// evening 17-20, night 21-4.
func timeSlotFor(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "night"
	}
}

func periodStart(period string, end time.Time) time.Time {
	switch period {
	case PeriodMonth:
		return end.AddDate(0, -1, 0)
	case PeriodYear:
		return end.AddDate(-1, 0, 0)
	default:
		return end.AddDate(0, 0, -7)
	}
}

func logsInWindow(db *gorm.DB, userID string, start, end time.Time) ([]models.DoseLog, error) {
	var logs []models.DoseLog
	err := db.Where("user_id = ? AND scheduled_time >= ? AND scheduled_time <= ?", userID, start, end).
		Find(&logs).Error
	return logs, err
}

// AdherenceStats computes the full adherence report for a period ending now
// and refreshes the cached summary row for the window.
func AdherenceStats(db *gorm.DB, userID, period string, now time.Time) (*AdherenceReport, error) {
	switch period {
	case PeriodWeek, PeriodMonth, PeriodYear:
	case "":
		period = PeriodWeek
	default:
		period = PeriodWeek
	}

	end := now
	start := periodStart(period, end)

	logs, err := logsInWindow(db, userID, start, end)
	if err != nil {
		return nil, err
	}

	overview := buildOverview(logs)
	report := &AdherenceReport{
		Period:            period,
		DateRange:         DateRange{StartDate: start, EndDate: end},
		Overview:          overview,
		DailyData:         dailyBreakdown(logs, start, end),
		MedicineBreakdown: medicineBreakdown(logs),
	}

	if err := upsertSummary(db, userID, period, start, end, report); err != nil {
		return nil, err
	}
	return report, nil
}

func buildOverview(logs []models.DoseLog) Overview {
	o := Overview{TotalScheduled: len(logs)}

	delaySum, delayCount := 0, 0
	for _, log := range logs {
		switch {
		case isTakenStatus(log.Status):
			o.Taken++
		case log.Status == models.StatusSkipped:
			o.Skipped++
			o.Missed++
		case log.Status == models.StatusMissed:
			o.Missed++
		case log.Status == models.StatusSnoozed:
			o.Snoozed++
		case log.Status == models.StatusPending:
			o.Pending++
		}
		if log.IsOnTime != nil && *log.IsOnTime {
			o.OnTime++
		}
		if log.Status == models.StatusTakenLate {
			o.Late++
		}
		if log.DelayMinutes > 0 {
			delaySum += log.DelayMinutes
			delayCount++
		}
	}

	o.AdherenceRate = roundRate(o.Taken, o.TotalScheduled)
	if delayCount > 0 {
		o.AverageDelay = int(float64(delaySum)/float64(delayCount) + 0.5)
	}
	return o
}

func dailyBreakdown(logs []models.DoseLog, start, end time.Time) []DailyPoint {
	byDay := make(map[string][]models.DoseLog)
	for _, log := range logs {
		key := log.ScheduledTime.Format("2006-01-02")
		byDay[key] = append(byDay[key], log)
	}

	var daily []DailyPoint
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		dayLogs := byDay[key]

		taken := 0
		for _, log := range dayLogs {
			if isTakenStatus(log.Status) {
				taken++
			}
		}
		daily = append(daily, DailyPoint{
			Date:          key,
			AdherenceRate: roundRate(taken, len(dayLogs)),
			Total:         len(dayLogs),
			Taken:         taken,
		})
	}
	return daily
}

func medicineBreakdown(logs []models.DoseLog) []MedicineStat {
	byMedicine := make(map[string]*MedicineStat)
	var order []string
	for _, log := range logs {
		stat, ok := byMedicine[log.MedicineID]
		if !ok {
			stat = &MedicineStat{MedicineID: log.MedicineID, MedicineName: log.MedicineName}
			byMedicine[log.MedicineID] = stat
			order = append(order, log.MedicineID)
		}
		stat.Total++
		if isTakenStatus(log.Status) {
			stat.Taken++
		}
	}

	breakdown := make([]MedicineStat, 0, len(order))
	for _, id := range order {
		stat := byMedicine[id]
		stat.AdherenceRate = roundRate(stat.Taken, stat.Total)
		breakdown = append(breakdown, *stat)
	}
	return breakdown
}

func upsertSummary(db *gorm.DB, userID, period string, start, end time.Time, report *AdherenceReport) error {
	breakdownJSON, err := json.Marshal(report.MedicineBreakdown)
	if err != nil {
		return err
	}

	o := report.Overview
	summary := models.AdherenceSummary{
		ID:                  uuid.New().String(),
		UserID:              userID,
		Period:              period,
		StartDate:           start,
		EndDate:             end,
		TotalScheduled:      o.TotalScheduled,
		Taken:               o.Taken,
		Missed:              o.Missed - o.Skipped,
		Snoozed:             o.Snoozed,
		Skipped:             o.Skipped,
		Pending:             o.Pending,
		AdherenceRate:       o.AdherenceRate,
		OnTime:              o.OnTime,
		Late:                o.Late,
		AverageDelayMinutes: o.AverageDelay,
		MedicineBreakdown:   datatypes.JSON(breakdownJSON),
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "period"}, {Name: "start_date"}, {Name: "end_date"},
		},
		UpdateAll: true,
	}).Create(&summary).Error
}

// CurrentStreak counts consecutive fully-adherent days walking back from
// today. A day with no logs ends the streak; empty days never count as
// adherent.
func CurrentStreak(logs []models.DoseLog, now time.Time) int {
	byDay := make(map[string][]models.DoseLog)
	for _, log := range logs {
		key := log.ScheduledTime.Format("2006-01-02")
		byDay[key] = append(byDay[key], log)
	}

	streak := 0
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for {
		dayLogs := byDay[day.Format("2006-01-02")]
		if len(dayLogs) == 0 {
			break
		}
		allTaken := true
		for _, log := range dayLogs {
			if !isTakenStatus(log.Status) {
				allTaken = false
				break
			}
		}
		if !allTaken {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// analyzeTimeSlots finds the worst non-empty time-of-day bucket.
func analyzeTimeSlots(logs []models.DoseLog) (worstSlot string, worstRate int) {
	totals := make(map[string]int)
	takens := make(map[string]int)
	for _, log := range logs {
		slot := timeSlotFor(log.ScheduledTime.Hour())
		totals[slot]++
		if isTakenStatus(log.Status) {
			takens[slot]++
		}
	}

	worstRate = 101
	for _, slot := range timeSlotOrder {
		if totals[slot] == 0 {
			continue
		}
		rate := roundRate(takens[slot], totals[slot])
		if rate < worstRate {
			worstRate = rate
			worstSlot = slot
		}
	}
	return worstSlot, worstRate
}

// Insights evaluates the rule set over the last 30 days. Rules are
// independent; several can fire at once.
func Insights(db *gorm.DB, userID string, now time.Time, lowStockThreshold int) ([]Insight, error) {
	start := now.AddDate(0, 0, -30)
	logs, err := logsInWindow(db, userID, start, now)
	if err != nil {
		return nil, err
	}

	insights := []Insight{}

	taken := 0
	for _, log := range logs {
		if isTakenStatus(log.Status) {
			taken++
		}
	}
	adherenceRate := roundRate(taken, len(logs))

	switch {
	case adherenceRate >= 90:
		insights = append(insights, Insight{
			Type:        "positive",
			Icon:        "trending-up",
			Title:       "Excellent Adherence!",
			Description: fmt.Sprintf("Your adherence rate of %d%% is outstanding. Keep up the great work!", adherenceRate),
			Priority:    "low",
		})
	case adherenceRate >= 80:
		insights = append(insights, Insight{
			Type:        "neutral",
			Icon:        "information-circle",
			Title:       "Good Progress",
			Description: fmt.Sprintf("Your %d%% adherence is good, but there's room for improvement.", adherenceRate),
			Priority:    "medium",
		})
	default:
		insights = append(insights, Insight{
			Type:        "warning",
			Icon:        "alert-circle",
			Title:       "Adherence Needs Attention",
			Description: fmt.Sprintf("Your %d%% adherence is below optimal. Consider setting more reminders.", adherenceRate),
			Priority:    "high",
		})
	}

	if worstSlot, _ := analyzeTimeSlots(logs); worstSlot != "" {
		insights = append(insights, Insight{
			Type:        "tip",
			Icon:        "time",
			Title:       "Time Pattern Detected",
			Description: fmt.Sprintf("You tend to miss more doses in the %s. Consider adjusting your schedule or setting stronger reminders.", worstSlot),
			Priority:    "medium",
		})
	}

	if streak := CurrentStreak(logs, now); streak >= 7 {
		insights = append(insights, Insight{
			Type:        "positive",
			Icon:        "flame",
			Title:       fmt.Sprintf("%d-Day Streak!", streak),
			Description: fmt.Sprintf("You've maintained consistency for %d days. Excellent discipline!", streak),
			Priority:    "low",
		})
	}

	if adherenceRate >= 85 {
		insights = append(insights, Insight{
			Type:        "prediction",
			Icon:        "analytics",
			Title:       "Prediction",
			Description: "If current trend continues, you'll reach 95% adherence by next month.",
			Priority:    "low",
		})
	}

	var lowStockCount int64
	err = db.Model(&models.Medicine{}).
		Where("user_id = ? AND is_active = ? AND remaining < ?", userID, true, lowStockThreshold).
		Count(&lowStockCount).Error
	if err != nil {
		return nil, err
	}
	if lowStockCount > 0 {
		insights = append(insights, Insight{
			Type:        "warning",
			Icon:        "warning",
			Title:       "Low Stock Alert",
			Description: fmt.Sprintf("%d medicine(s) are running low. Consider refilling soon.", lowStockCount),
			Priority:    "high",
		})
	}

	return insights, nil
}

// Patterns analyzes weekday and time-of-day adherence over the last 30 days.
func Patterns(db *gorm.DB, userID string, now time.Time) (*PatternReport, error) {
	start := now.AddDate(0, 0, -30)
	logs, err := logsInWindow(db, userID, start, now)
	if err != nil {
		return nil, err
	}

	dayTotals := make([]int, 7)
	dayTakens := make([]int, 7)
	slotTotals := make(map[string]int)
	slotTakens := make(map[string]int)

	for _, log := range logs {
		day := int(log.ScheduledTime.Weekday())
		dayTotals[day]++

		slot := timeSlotFor(log.ScheduledTime.Hour())
		slotTotals[slot]++

		if isTakenStatus(log.Status) {
			dayTakens[day]++
			slotTakens[slot]++
		}
	}

	report := &PatternReport{}

	for i := 0; i < 7; i++ {
		report.DayAnalysis = append(report.DayAnalysis, DayStat{
			Day:           dayNames[i],
			AdherenceRate: roundRate(dayTakens[i], dayTotals[i]),
			Total:         dayTotals[i],
			Taken:         dayTakens[i],
		})
	}
	for i := range report.DayAnalysis {
		stat := &report.DayAnalysis[i]
		if report.BestDay == nil || stat.AdherenceRate > report.BestDay.AdherenceRate {
			report.BestDay = stat
		}
		if report.WorstDay == nil || stat.AdherenceRate < report.WorstDay.AdherenceRate {
			report.WorstDay = stat
		}
	}

	for _, slot := range timeSlotOrder {
		report.TimeAnalysis = append(report.TimeAnalysis, TimeSlotStat{
			TimeSlot:      slot,
			AdherenceRate: roundRate(slotTakens[slot], slotTotals[slot]),
			Total:         slotTotals[slot],
			Taken:         slotTakens[slot],
		})
	}
	for i := range report.TimeAnalysis {
		stat := &report.TimeAnalysis[i]
		if stat.Total == 0 {
			continue
		}
		if report.BestTime == nil || stat.AdherenceRate > report.BestTime.AdherenceRate {
			report.BestTime = stat
		}
		if report.WorstTime == nil || stat.AdherenceRate < report.WorstTime.AdherenceRate {
			report.WorstTime = stat
		}
	}

	return report, nil
}
