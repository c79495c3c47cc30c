package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/shaiso/Metronome/internal/domain"
)

// Generator выполняет генерацию отчёта.
//
// Реализация отвечает за интерпретацию report.Query и выгрузку в
// report.Format. Сама выгрузка файлов за пределами ответственности
// планирования, поэтому по умолчанию используется StubGenerator.
type Generator interface {
	Generate(ctx context.Context, report *domain.Report) (*GenerationResult, error)
}

// GenerationResult — результат генерации отчёта.
type GenerationResult struct {
	// RowCount — количество строк в выгрузке.
	RowCount int

	// Error — логическая ошибка генерации (некорректный query).
	// Инфраструктурные ошибки возвращаются через error в Generate().
	Error string
}

// StubGenerator — детерминированная заглушка генерации.
//
// Проверяет формат и query, возвращает стабильный row count по хэшу
// query. Замена на реальную выгрузку не меняет контракт воркера.
type StubGenerator struct{}

// Generate выполняет генерацию-заглушку.
func (g *StubGenerator) Generate(ctx context.Context, report *domain.Report) (*GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !domain.ValidReportFormat(report.Format) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, report.Format)
	}

	if strings.TrimSpace(report.Query) == "" {
		return &GenerationResult{Error: "report query is empty"}, nil
	}

	h := fnv.New32a()
	h.Write([]byte(report.Query))
	return &GenerationResult{RowCount: int(h.Sum32() % 10000)}, nil
}
