package receipt_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/frahmantamala/expense-tracker/internal/receipt"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type MockRecognizer struct {
	text string
	err  error
}

func (m *MockRecognizer) Recognize(ctx context.Context, contentType string, image []byte) (string, error) {
	return m.text, m.err
}

type FailingStore struct{}

func (FailingStore) Put(ctx context.Context, objectName, contentType string, body io.Reader) (string, error) {
	return "", errors.New("bucket unreachable")
}

func (FailingStore) Delete(ctx context.Context, url string) error { return nil }

var _ = Describe("Receipt Service", func() {
	var (
		ctx    context.Context
		dir    string
		store  *receipt.DiskStore
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		store = receipt.NewDiskStore(dir, "http://localhost:8080/files/")
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	Describe("Upload", func() {
		It("stores the file under the owner prefix", func() {
			service := receipt.NewService(store, nil, 1024, logger)

			url, err := service.Upload(ctx, "user-1", receipt.NewFile("bill.JPG", "image/jpeg", []byte("jpegdata")))
			Expect(err).NotTo(HaveOccurred())
			Expect(url).To(HavePrefix("http://localhost:8080/files/receipts/user-1/"))
			Expect(url).To(HaveSuffix(".jpg"))

			objectName := strings.TrimPrefix(url, "http://localhost:8080/files/")
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(objectName)))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("jpegdata"))
		})

		It("rejects oversized files", func() {
			service := receipt.NewService(store, nil, 4, logger)
			_, err := service.Upload(ctx, "user-1", receipt.NewFile("big.png", "image/png", []byte("0123456789")))
			Expect(err).To(Equal(receipt.ErrFileTooLarge))
		})

		It("reports store failures as upload errors", func() {
			service := receipt.NewService(FailingStore{}, nil, 1024, logger)
			_, err := service.Upload(ctx, "user-1", receipt.NewFile("a.png", "image/png", []byte("x")))

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeUploadFailed))
			Expect(appErr.StatusCode).To(Equal(502))
			Expect(errors.Is(err, receipt.ErrUploadFailed)).To(BeTrue())
		})

		It("rejects a file whose declared size understates its content", func() {
			// Given a body of 10 bytes declared as 2
			service := receipt.NewService(store, nil, 4, logger)
			f := receipt.File{Name: "big.png", ContentType: "image/png", Size: 2, Body: strings.NewReader("0123456789")}

			// When
			_, err := service.Upload(ctx, "user-1", f)

			// Then nothing is stored
			Expect(err).To(Equal(receipt.ErrFileTooLarge))
			entries, _ := os.ReadDir(dir)
			Expect(entries).To(BeEmpty())
		})

		It("discards uploaded files", func() {
			service := receipt.NewService(store, nil, 1024, logger)
			url, err := service.Upload(ctx, "user-1", receipt.NewFile("a.pdf", "application/pdf", []byte("%PDF")))
			Expect(err).NotTo(HaveOccurred())

			service.Discard(ctx, []string{url})

			objectName := strings.TrimPrefix(url, "http://localhost:8080/files/")
			_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(objectName)))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("UploadBill", func() {
		It("stores the bill and extracts its amount and date", func() {
			service := receipt.NewService(store, &MockRecognizer{text: "12/03/2024\nTotal 1,250.00"}, 1024, logger)

			url, got, err := service.UploadBill(ctx, "user-1", receipt.NewFile("bill.jpg", "image/jpeg", []byte("img")))

			Expect(err).NotTo(HaveOccurred())
			Expect(url).To(HavePrefix("http://localhost:8080/files/receipts/user-1/"))
			Expect(got.Amount).To(Equal("1250.00"))
			Expect(got.Date).To(Equal("2024-03-12"))
		})

		It("keeps the upload when recognition fails", func() {
			service := receipt.NewService(store, &MockRecognizer{err: errors.New("ocr offline")}, 1024, logger)

			url, got, err := service.UploadBill(ctx, "user-1", receipt.NewFile("bill.jpg", "image/jpeg", []byte("img")))

			Expect(err).NotTo(HaveOccurred())
			Expect(url).NotTo(BeEmpty())
			Expect(got).To(Equal(receipt.Extraction{}))
		})

		It("does not run recognition when the upload fails", func() {
			recognizer := &MockRecognizer{text: "Total 5.00"}
			service := receipt.NewService(FailingStore{}, recognizer, 1024, logger)

			_, got, err := service.UploadBill(ctx, "user-1", receipt.NewFile("bill.jpg", "image/jpeg", []byte("img")))

			Expect(errors.Is(err, receipt.ErrUploadFailed)).To(BeTrue())
			Expect(got).To(Equal(receipt.Extraction{}))
		})
	})

	Describe("Scan", func() {
		It("extracts amount and date from recognized text", func() {
			service := receipt.NewService(store, &MockRecognizer{text: "12/03/2024\nTotal 1,250.00"}, 1024, logger)
			got, err := service.Scan(ctx, receipt.NewFile("r.jpg", "image/jpeg", []byte("img")))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Amount).To(Equal("1250.00"))
			Expect(got.Date).To(Equal("2024-03-12"))
		})

		It("degrades to an empty extraction when recognition fails", func() {
			service := receipt.NewService(store, &MockRecognizer{err: errors.New("ocr offline")}, 1024, logger)
			got, err := service.Scan(ctx, receipt.NewFile("r.jpg", "image/jpeg", []byte("img")))
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(receipt.Extraction{}))
		})

		It("returns an empty extraction without a recognizer", func() {
			service := receipt.NewService(store, nil, 1024, logger)
			got, err := service.Scan(ctx, receipt.NewFile("r.jpg", "image/jpeg", []byte("img")))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Amount).To(BeEmpty())
		})
	})
})
