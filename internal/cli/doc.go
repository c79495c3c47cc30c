// Package cli реализует инструмент командной строки Metronome.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Metronome API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления reports и наблюдения за планировщиком.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Metronome API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок. Владельца объявляет заголовок X-User-ID.
//
//	client := cli.NewClient("http://localhost:8080", "alice")
//	reports, err := client.ListReports(cli.ListReportsOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: metronome report list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - report: list, create, show, update, delete, enable, disable, trigger, runs
//   - scheduler: status
//
// Каждая группа создаётся через фабричную функцию (NewReportCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
