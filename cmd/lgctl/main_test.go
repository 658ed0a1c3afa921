package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lgcert/indigene-certificate/internal/portal/apiclient"
	"github.com/lgcert/indigene-certificate/internal/portal/services"
	"github.com/lgcert/indigene-certificate/internal/portal/workflow"
	"github.com/lgcert/indigene-certificate/logger"
)

const applicationYAML = `full_name: Amina Bello
nin: "12345678901"
date_of_birth: "1990-04-01"
state: Lagos
local_government_id: 1
village: Agidingbi
phone: "08031234567"
email: amina@example.com
address: 12 Allen Avenue
photo: me.png
id_slip: slip.pdf
`

type harness struct {
	env     *environment
	backend *services.MockBackend
	opened  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	session, err := apiclient.NewSession(&apiclient.MemoryStore{})
	require.NoError(t, err)
	h := &harness{backend: services.NewMockBackend(0)}
	h.env = &environment{
		log:     logger.Nop(),
		session: session,
		backend: h.backend,
		launcher: workflow.LauncherFunc(func(url string) error {
			h.opened = append(h.opened, url)
			return nil
		}),
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(h.env)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, out)
	return out
}

func writeForm(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 8))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "me.png"), img.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slip.pdf"), []byte("%PDF-1.4 slip"), 0o644))
	path := filepath.Join(dir, "application.yaml")
	require.NoError(t, os.WriteFile(path, []byte(applicationYAML), 0o644))
	return path
}

func TestLoginAndWhoami(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "login", "-e", "amina@example.com", "-p", "secret123")
	assert.Contains(t, out, "Signed in as Amina Bello (applicant)")
	require.NotNil(t, h.env.session.User())

	out = h.mustRun(t, "whoami")
	assert.Contains(t, out, "Amina Bello <amina@example.com>")

	h.mustRun(t, "logout")
	assert.Nil(t, h.env.session.User())
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "login", "-e", "amina@example.com", "-p", "nope-nope")
	require.Error(t, err)
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryInvalidCredentials))
}

func TestApplyReviewAndVerify(t *testing.T) {
	h := newHarness(t)
	form := writeForm(t)

	h.mustRun(t, "login", "-e", "amina@example.com", "-p", "secret123")
	out := h.mustRun(t, "apply", "--form", form, "--wait", "5s")
	assert.Contains(t, out, "Attached Passport photograph")
	assert.Contains(t, out, "Payment confirmed.")
	require.Len(t, h.opened, 1)
	assert.Contains(t, h.opened[0], "https://checkout.mock/pay/")

	mine, err := h.backend.ListMyApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	app := mine[0]
	assert.Equal(t, "paid", string(app.PaymentStatus))

	out = h.mustRun(t, "applications", "--status", "pending")
	assert.Contains(t, out, app.Reference)
	assert.Contains(t, out, "Showing 1-1 of 1")

	out = h.mustRun(t, "applications", "--search", "nobody")
	assert.Contains(t, out, "No records found.")

	h.mustRun(t, "login", "-e", "admin@ikeja.gov.ng", "-p", "secret123")
	out = h.mustRun(t, "admin", "applications")
	assert.Contains(t, out, app.Reference)

	id := strconv.FormatUint(uint64(app.ID), 10)
	_, err = h.run(t, "admin", "status", id, "rejected")
	require.Error(t, err)

	out = h.mustRun(t, "admin", "status", id, "approved")
	assert.Contains(t, out, "is now approved")
	assert.Contains(t, out, "Certificate issued: LGC-IKJ-")

	approved, err := h.backend.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)

	out = h.mustRun(t, "verify", approved.CertificateID)
	assert.Contains(t, out, approved.CertificateID+" is valid")
	assert.Contains(t, out, "Holder: Amina Bello")

	out = h.mustRun(t, "verify", "LGC-XXX-0000-0000")
	assert.Contains(t, out, "is not a valid certificate")
}

func TestApplyWithoutWaitPrintsReference(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "login", "-e", "amina@example.com", "-p", "secret123")

	out := h.mustRun(t, "apply", "-f", writeForm(t))
	assert.Contains(t, out, "lgctl pay verify ")

	mine, err := h.backend.ListMyApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, mine, 1)
	ref := mine[0].PaymentReference
	require.NotEmpty(t, ref)

	out = h.mustRun(t, "pay", "verify", ref)
	assert.Contains(t, out, "Payment "+ref+": success")
}

func TestPayVerifyPending(t *testing.T) {
	h := newHarness(t)
	h.backend.AutoCapture = false
	h.mustRun(t, "login", "-e", "amina@example.com", "-p", "secret123")
	h.mustRun(t, "apply", "-f", writeForm(t))

	mine, err := h.backend.ListMyApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = h.run(t, "pay", "verify", mine[0].PaymentReference)
	var pending *workflow.PaymentStatusError
	require.ErrorAs(t, err, &pending)
	assert.Equal(t, "pending", pending.Status)
}

func TestApplyRequiresSignIn(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "apply", "-f", writeForm(t))
	require.Error(t, err)
	assert.Contains(t, workflow.Message(err), "submit")
}

func TestLGAsListsFees(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun(t, "lgas")
	assert.Contains(t, out, "IKJ")
	assert.Contains(t, out, "NGN 5000.00")
}

func TestAdminFieldsRequireManagePermission(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "login", "-e", "admin@ikeja.gov.ng", "-p", "secret123")
	_, err := h.run(t, "admin", "fields", "add", "Ward", "--lga", "1")
	require.Error(t, err)
	assert.True(t, apiclient.IsCategory(err, apiclient.CategoryForbidden))

	h.mustRun(t, "login", "-e", "superadmin@lgcert.gov.ng", "-p", "secret123")
	out := h.mustRun(t, "admin", "fields", "add", "Ward", "--lga", "1", "--kind", "select", "--required", "--option", "A", "--option", "B")
	assert.Contains(t, out, "Added field")

	out = h.mustRun(t, "admin", "fields", "list", "--lga", "1")
	assert.Contains(t, out, "A|B")
}
