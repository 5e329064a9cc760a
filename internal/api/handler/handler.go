package handler

import (
	"campusmind/backend/internal/chathub"
	"campusmind/backend/internal/storage"
)

// Handler wires the HTTP surface to the chat hub and storage.
type Handler struct {
	Hub        *chathub.ManagerService
	Storage    storage.Storage
	JWTSecret  []byte
	AdminToken string
}

func NewHandler(hub *chathub.ManagerService, s storage.Storage, jwtSecret []byte, adminToken string) *Handler {
	return &Handler{Hub: hub, Storage: s, JWTSecret: jwtSecret, AdminToken: adminToken}
}
