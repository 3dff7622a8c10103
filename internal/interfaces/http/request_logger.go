package http

import (
	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RequestLogger registra cada petición con método, ruta, status, latencia y usuario autenticado.
// 5xx en error, 4xx en debug (el ErrorHandler ya informa los rechazos relevantes).
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return fiberzerolog.New(fiberzerolog.Config{
		Logger: &log,
		GetLogger: func(c *fiber.Ctx) zerolog.Logger {
			return log.With().Str("user_id", GetUserID(c)).Logger()
		},
		Fields: []string{
			fiberzerolog.FieldMethod,
			fiberzerolog.FieldPath,
			fiberzerolog.FieldStatus,
			fiberzerolog.FieldLatency,
		},
		Levels:   []zerolog.Level{zerolog.ErrorLevel, zerolog.DebugLevel, zerolog.InfoLevel},
		Messages: []string{"petición fallida", "petición rechazada", "petición"},
	})
}
