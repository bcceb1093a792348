package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/infusitech/invoices_backend/config"
	"github.com/infusitech/invoices_backend/models"
	"github.com/infusitech/invoices_backend/utils"
)

// End-to-end lifecycle regression: create -> send -> pay -> paid, with the
// overpay guard and hard delete on top. Catches changes that would alter
// derived totals, numbering or the status derivation.
//
// Run (requires Docker): INTEGRATION_TESTS=1 go test ./models -run InvoiceLifecycle -v
func TestInvoiceLifecycleRegression(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "invoices_test")
	// No redis on purpose: the series lock must degrade gracefully.
	t.Setenv("REDIS_ADDRESS", "")

	config.ConnectDatabaseWithRetry()
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}

	dueDate := time.Now().AddDate(0, 1, 0)
	invoice, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientName:  "Acme Ltd",
		InvoiceDate: time.Now(),
		DueDate:     &dueDate,
		TaxRate:     decimal.NewFromInt(5),
		Items: []models.NewInvoiceItem{
			{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitRate: decimal.NewFromInt(50), Discount: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	year := time.Now().Year()
	if want := models.FormatInvoiceNumber(year, 1); invoice.InvoiceNumber != want {
		t.Errorf("first invoice number = %q, want %q", invoice.InvoiceNumber, want)
	}
	if !invoice.Subtotal.Equal(decimal.NewFromInt(90)) {
		t.Errorf("subtotal = %s, want 90", invoice.Subtotal)
	}
	if !invoice.TaxAmount.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("tax = %s, want 4.5", invoice.TaxAmount)
	}
	if !invoice.Total.Equal(decimal.RequireFromString("94.5")) {
		t.Errorf("total = %s, want 94.5", invoice.Total)
	}
	if invoice.CurrentStatus != models.InvoiceStatusDraft {
		t.Errorf("status = %s, want draft", invoice.CurrentStatus)
	}

	// Numbers allocate sequentially within the year.
	second, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientName:  "Other Client",
		InvoiceDate: time.Now(),
		Items: []models.NewInvoiceItem{
			{Description: "Setup", Quantity: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(10)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice second: %v", err)
	}
	if want := models.FormatInvoiceNumber(year, 2); second.InvoiceNumber != want {
		t.Errorf("second invoice number = %q, want %q", second.InvoiceNumber, want)
	}

	if _, err := models.MarkInvoiceSent(ctx, invoice.ID, time.Now()); err != nil {
		t.Fatalf("MarkInvoiceSent: %v", err)
	}
	got, err := models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.CurrentStatus != models.InvoiceStatusSent {
		t.Errorf("status after send = %s, want sent", got.CurrentStatus)
	}

	// Overpay is rejected and leaves the ledger untouched.
	_, err = models.RecordPayment(ctx, invoice.ID, &models.NewPayment{
		PaymentDate:   time.Now(),
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: "Cash",
	})
	if !errors.Is(err, utils.ErrExceedsBalance) {
		t.Fatalf("overpay error = %v, want ErrExceedsBalance", err)
	}
	payments, err := models.GetPayments(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetPayments: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("rejected payment must not be appended, got %d entries", len(payments))
	}

	// Partial, then exact settle.
	if _, err := models.RecordPayment(ctx, invoice.ID, &models.NewPayment{
		PaymentDate:   time.Now(),
		Amount:        decimal.NewFromInt(40),
		PaymentMethod: "Mobile Money",
	}); err != nil {
		t.Fatalf("RecordPayment partial: %v", err)
	}
	got, err = models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.CurrentStatus != models.InvoiceStatusPartial {
		t.Errorf("status after partial payment = %s, want partial", got.CurrentStatus)
	}

	// An edit cannot shrink the total below what has already been paid.
	_, err = models.UpdateInvoice(ctx, invoice.ID, &models.NewInvoice{
		ClientName:  "Acme Ltd",
		InvoiceDate: time.Now(),
		DueDate:     &dueDate,
		TaxRate:     decimal.NewFromInt(5),
		Items: []models.NewInvoiceItem{
			{Description: "Consulting", Quantity: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(30)},
		},
	})
	if err == nil {
		t.Fatal("shrinking the total below the paid amount must fail")
	}
	got, err = models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if !got.Total.Equal(decimal.RequireFromString("94.5")) {
		t.Errorf("rejected edit must leave the invoice untouched, total = %s", got.Total)
	}
	if len(got.Items) != 1 || !got.Items[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("rejected edit must leave the items untouched: %+v", got.Items)
	}

	settle, err := models.RecordPayment(ctx, invoice.ID, &models.NewPayment{
		PaymentDate:   time.Now(),
		Amount:        decimal.RequireFromString("54.5"),
		PaymentMethod: "Bank Transfer",
	})
	if err != nil {
		t.Fatalf("RecordPayment settle: %v", err)
	}
	if _, _, ok := models.ParseReceiptNumber(settle.ReceiptNumber); !ok {
		t.Errorf("receipt number %q does not match the series format", settle.ReceiptNumber)
	}
	got, err = models.GetInvoice(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if got.CurrentStatus != models.InvoiceStatusPaid {
		t.Errorf("status after settling = %s, want paid", got.CurrentStatus)
	}
	if !got.RemainingBalance().IsZero() {
		t.Errorf("remaining balance = %s, want 0", got.RemainingBalance())
	}

	// A paid invoice cannot be cancelled.
	if _, err := models.CancelInvoice(ctx, invoice.ID, "duplicate"); err == nil {
		t.Error("cancelling an invoice with payments must fail")
	}

	// Cancel the second (unpaid) invoice, then confirm payment rejection.
	if _, err := models.CancelInvoice(ctx, second.ID, "entered in error"); err != nil {
		t.Fatalf("CancelInvoice: %v", err)
	}
	if _, err := models.RecordPayment(ctx, second.ID, &models.NewPayment{
		PaymentDate:   time.Now(),
		Amount:        decimal.NewFromInt(1),
		PaymentMethod: "Cash",
	}); err == nil {
		t.Error("recording a payment on a cancelled invoice must fail")
	}

	// Activity trail is append-only and covers every mutation above.
	activities, err := models.GetActivities(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetActivities: %v", err)
	}
	if len(activities) < 4 {
		t.Errorf("expected created/sent/payment/payment trail, got %d entries", len(activities))
	}

	// Hard delete removes the invoice and all dependents.
	if _, err := models.DeleteInvoice(ctx, invoice.ID); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	if _, err := models.GetInvoice(ctx, invoice.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("GetInvoice after delete = %v, want ErrorRecordNotFound", err)
	}
	leftovers, err := models.GetPayments(ctx, invoice.ID)
	if err != nil {
		t.Fatalf("GetPayments after delete: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("payments must be removed with the invoice, got %d", len(leftovers))
	}

	// Deleted numbers are not reused.
	third, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientName:  "Third Client",
		InvoiceDate: time.Now(),
		Items: []models.NewInvoiceItem{
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(20)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice third: %v", err)
	}
	if want := models.FormatInvoiceNumber(year, 3); third.InvoiceNumber != want {
		t.Errorf("third invoice number = %q, want %q", third.InvoiceNumber, want)
	}

	// Backup round-trip: export, wipe via import, verify the collection and
	// the forward-only series both survive.
	backup, err := models.ExportBackup(ctx)
	if err != nil {
		t.Fatalf("ExportBackup: %v", err)
	}
	raw, err := utils.MarshalToJSON(backup)
	if err != nil {
		t.Fatalf("marshal backup: %v", err)
	}
	if _, err := models.ImportBackup(ctx, []byte(raw)); err != nil {
		t.Fatalf("ImportBackup: %v", err)
	}
	restored, err := models.GetInvoices(ctx, nil, nil)
	if err != nil {
		t.Fatalf("GetInvoices after import: %v", err)
	}
	if len(restored) != len(backup.Invoices) {
		t.Fatalf("restored %d invoices, want %d", len(restored), len(backup.Invoices))
	}
	fourth, err := models.CreateInvoice(ctx, &models.NewInvoice{
		ClientName:  "Fourth Client",
		InvoiceDate: time.Now(),
		Items: []models.NewInvoiceItem{
			{Description: "Support", Quantity: decimal.NewFromInt(1), UnitRate: decimal.NewFromInt(30)},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice fourth: %v", err)
	}
	if want := models.FormatInvoiceNumber(year, 4); fourth.InvoiceNumber != want {
		t.Errorf("invoice number after import = %q, want %q", fourth.InvoiceNumber, want)
	}
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("invoices-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=invoices_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
