package chats

import (
	"time"

	"github.com/atinyakov/docchat/internal/models"
)

func seedTime(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedChats returns the demo chats shown to a freshly signed-in user.
func SeedChats() []models.Chat {
	return []models.Chat{
		{
			ID:          "1",
			Title:       "Análisis de Presupuesto 2024",
			FileName:    "presupuesto_2024.pdf",
			FileType:    "pdf",
			LastMessage: "¿Puedes resumir los gastos del Q1?",
			Timestamp:   seedTime("2024-12-16T10:30:00"),
			Messages: []models.Message{
				{ID: "1", Content: "Hola, he subido el documento de presupuesto", Sender: models.SenderUser, Timestamp: seedTime("2024-12-16T10:20:00")},
				{ID: "2", Content: "Perfecto, he analizado el documento. ¿En qué puedo ayudarte?", Sender: models.SenderAI, Timestamp: seedTime("2024-12-16T10:20:30")},
				{ID: "3", Content: "¿Puedes resumir los gastos del Q1?", Sender: models.SenderUser, Timestamp: seedTime("2024-12-16T10:30:00")},
			},
		},
		{
			ID:          "2",
			Title:       "Contrato de Servicios",
			FileName:    "contrato_servicios.docx",
			FileType:    "docx",
			LastMessage: "¿Cuáles son las cláusulas principales?",
			Timestamp:   seedTime("2024-12-15T14:20:00"),
			Messages: []models.Message{
				{ID: "1", Content: "Analiza este contrato", Sender: models.SenderUser, Timestamp: seedTime("2024-12-15T14:15:00")},
				{ID: "2", Content: "He revisado el contrato. Tiene 12 páginas y cubre servicios de consultoría.", Sender: models.SenderAI, Timestamp: seedTime("2024-12-15T14:15:30")},
				{ID: "3", Content: "¿Cuáles son las cláusulas principales?", Sender: models.SenderUser, Timestamp: seedTime("2024-12-15T14:20:00")},
			},
		},
	}
}
