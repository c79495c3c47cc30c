// Package scheduler реализует планирование генераций отчётов.
//
// Scheduler периодически выбирает reports с истекшим next_run_at,
// отправляет jobs на генерацию в очередь и сдвигает расписания.
//
// Структура:
//   - scheduler.go — тик-цикл Scheduler (Start/Stop, tick, processDue)
//   - lease.go     — LeaseLock: межпроцессный замок поверх общей таблицы
//   - nextrun.go   — вычисление следующего времени генерации
//   - contract.go  — контракты хранилищ и диспетчера jobs
//   - config.go    — конфигурация из переменных окружения
//
// Использование:
//
//	lease, _ := scheduler.NewLeaseLock(scheduler.LeaseLockConfig{
//	    Store:    leaseRepo,
//	    Logger:   logger,
//	    FailOpen: true,
//	})
//
//	sched, _ := scheduler.New(scheduler.Config{
//	    Reports:    reportRepo,
//	    Lease:      lease,
//	    Dispatcher: publisher,
//	    Logger:     logger,
//	})
//
//	sched.Start(ctx)
//	defer sched.Stop(ctx)
//
// Leader Election:
//
// Каждый экземпляр запускает собственный цикл; право отправлять jobs
// в конкретном окне определяет lease-запись в общей таблице leases.
// Экземпляр без lease пропускает тик. Истёкшую lease может захватить
// любой экземпляр, условная запись гарантирует одного победителя.
package scheduler
