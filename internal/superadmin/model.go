package superadmin

import (
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
)

type CreateAdminRequest struct {
	FullName          string   `json:"fullName" binding:"required"`
	Email             string   `json:"email" binding:"required,email"`
	Phone             string   `json:"phone"`
	Password          string   `json:"password" binding:"required,min=8"`
	LocalGovernmentID uint     `json:"localGovernmentId" binding:"required"`
	Permissions       []string `json:"permissions"`
}

type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// AdminResponse is an lg admin as listed to the superadmin.
type AdminResponse struct {
	auth.UserPayload
	Status string `json:"status"`
}

func toResponse(u auth.User) AdminResponse {
	return AdminResponse{UserPayload: u.Payload(), Status: u.Status}
}

// BulkUploadResult reports a CSV import of lg admins.
type BulkUploadResult struct {
	Created int            `json:"created"`
	Failed  int            `json:"failed"`
	Errors  []BulkRowError `json:"errors"`
}

type BulkRowError struct {
	Row   int    `json:"row"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

// Dashboard aggregates the counters shown on the admin landing page.
type Dashboard struct {
	LocalGovernmentID  *uint            `json:"local_government_id,omitempty"`
	Applications       *lifecycle.Stats `json:"applications"`
	Digitization       *lifecycle.Stats `json:"digitization"`
	CertificatesIssued int64            `json:"certificates_issued"`
	Revenue            float64          `json:"revenue"`
	PendingReview      int64            `json:"pending_review"`
}
