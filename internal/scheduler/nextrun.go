package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Metronome/internal/domain"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun вычисляет следующее время генерации для расписания.
// Для интервалов просто добавляет IntervalHours к моменту отправки,
// поэтому next_run_at всегда строго позже from и отчёт не становится
// due повторно на следующем тике.
//
// Учитывает timezone расписания (для cron-выражений).
func NextRun(sched *domain.ReportSchedule, from time.Time) (time.Time, error) {
	// Загружаем timezone
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}

	fromInTz := from.In(loc)

	if sched.IsCron() {
		return nextCron(sched.CronExpr, fromInTz)
	}

	if sched.IsInterval() {
		return nextInterval(sched.IntervalHours, fromInTz), nil
	}

	// Ни cron, ни interval — расписание некорректное
	return time.Time{}, fmt.Errorf("schedule has neither cron_expr nor interval_hours")
}

// nextCron вычисляет следующее время по cron-выражению.
func nextCron(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}

	next := schedule.Next(from)
	return next.UTC(), nil // возвращаем в UTC для хранения в БД
}

// nextInterval вычисляет следующее время по интервалу в часах.
func nextInterval(intervalHours int, from time.Time) time.Time {
	next := from.Add(time.Duration(intervalHours) * time.Hour)
	return next.UTC() // возвращаем в UTC для хранения в БД
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// InitialNextRun вычисляет первое время генерации для нового расписания.
// Используется при создании report через API.
func InitialNextRun(sched *domain.ReportSchedule) (time.Time, error) {
	return NextRun(sched, time.Now())
}
