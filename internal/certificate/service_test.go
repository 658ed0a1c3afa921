package certificate

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/lgcert/indigene-certificate/database/dbtest"
	"github.com/lgcert/indigene-certificate/internal/access"
	"github.com/lgcert/indigene-certificate/internal/apperr"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *event.Recorder) {
	db := dbtest.Open(t, &Certificate{}, &auditlog.AuditLog{})
	rec := &event.Recorder{}
	verifyURL := func(id string) string { return "https://lgcert.example/verify?certificateId=" + id }
	svc := NewService(NewRepository(db), auditlog.NewService(auditlog.NewRepository(db), nil), rec, verifyURL, nil)
	return svc, rec
}

func issueInput() IssueInput {
	return IssueInput{
		RecordType:          RecordApplication,
		RecordID:            12,
		UserID:              9,
		HolderName:          "Amina Bello",
		NIN:                 "12345678901",
		DateOfBirth:         "1990-04-01",
		LocalGovernmentID:   4,
		LocalGovernmentName: "Ikeja",
		LocalGovernmentCode: "ikj",
		State:               "Lagos",
		Village:             "Agidingbi",
		ActorID:             2,
	}
}

func TestNewCertificateIDFormat(t *testing.T) {
	id := NewCertificateID("ikj", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^LGC-IKJ-2026-[0-9A-F]{8}$`), id)
	assert.Contains(t, NewCertificateID("", time.Now()), "LGC-LGA-")
}

func TestIssueIsIdempotentPerRecord(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, issueInput())
	require.NoError(t, err)
	second, err := svc.Issue(ctx, issueInput())
	require.NoError(t, err)
	assert.Equal(t, first.CertificateID, second.CertificateID)
	assert.Equal(t, []event.Type{event.CertificateIssued}, rec.Types())
	assert.Equal(t, first.CertificateID, rec.Events[0].CertificateID)

	mine, err := svc.ListMine(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	n, err := svc.CountIssued(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGetRespectsViewer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cert, err := svc.Issue(ctx, issueInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, access.Viewer{UserID: 9, Role: access.RoleApplicant}, cert.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, access.Viewer{UserID: 10, Role: access.RoleApplicant}, cert.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	other := uint(5)
	_, err = svc.Get(ctx, access.Viewer{UserID: 2, Role: access.RoleLGAdmin, Scope: &other}, cert.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Get(ctx, access.Viewer{UserID: 1, Role: access.RoleSuperAdmin}, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDownloadAndQR(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	in := issueInput()
	in.Digitized = true
	in.OldCertificateNumber = "IKJ/1998/0042"
	cert, err := svc.Issue(ctx, in)
	require.NoError(t, err)

	owner := access.Viewer{UserID: 9, Role: access.RoleApplicant}
	_, pdf, err := svc.Download(ctx, owner, cert.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))

	png, err := svc.QR(ctx, owner, cert.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestPayloadShape(t *testing.T) {
	cert := &Certificate{CertificateID: "LGC-IKJ-2026-ABCDEF12", HolderName: "Amina Bello", NIN: "12345678901"}
	b, err := json.Marshal(Payload(cert, "https://x/verify?certificateId=LGC-IKJ-2026-ABCDEF12"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"certificateId":"LGC-IKJ-2026-ABCDEF12","holderName":"Amina Bello","nin":"12345678901","verifyUrl":"https://x/verify?certificateId=LGC-IKJ-2026-ABCDEF12"}`, string(b))
}

func TestVerify(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cert, err := svc.Issue(ctx, issueInput())
	require.NoError(t, err)

	v, err := svc.Verify(ctx, " "+cert.CertificateID+" ")
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Equal(t, "Ikeja", v.LocalGovernment)

	v, err = svc.Verify(ctx, "lgc-nope")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "LGC-NOPE", v.CertificateID)
}
