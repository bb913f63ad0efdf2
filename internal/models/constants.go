package models

import "time"

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

const ParseModeMarkdown = "Markdown"

const (
	// DefaultSlotDuration длительность одного слота записи
	DefaultSlotDuration = 30 * time.Minute

	// CancellationSecretBytes количество случайных байт в секрете отмены (hex => 32 символа)
	CancellationSecretBytes = 16

	// ManagementTokenBytes количество случайных байт в токене управления
	ManagementTokenBytes = 24

	// DateLayout формат календарной даты в запросах
	DateLayout = "2006-01-02"

	// DateTimeLayout формат локального времени записи без зоны
	DateTimeLayout = "2006-01-02 15:04:05"

	// DefaultWindowStart и DefaultWindowEnd окно по умолчанию для нового владельца
	DefaultWindowStart = "09:00"
	DefaultWindowEnd   = "17:00"

	// WorkerQueueSize размер очереди воркера уведомлений
	WorkerQueueSize = 1000

	// AttemptLimit количество попыток записи в окне
	AttemptLimit = 10

	// AttemptWindow окно ограничения частоты попыток записи
	AttemptWindow = 60 // 1 минута в секундах
)
