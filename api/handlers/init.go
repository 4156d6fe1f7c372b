package handlers

import "github.com/mailvault/mailvault/services"

type APIHandlers struct {
	Storage *StorageHandler
}

func InitHandlers(s *services.Services) *APIHandlers {
	return &APIHandlers{
		Storage: NewStorageHandler(s),
	}
}
