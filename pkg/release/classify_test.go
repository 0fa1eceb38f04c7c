package release

import (
	"errors"
	"net/http"

	"github.com/google/go-github/v57/github"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
)

func ghResponse(statusCode int, header http.Header) *github.Response {
	if header == nil {
		header = http.Header{}
	}
	return &github.Response{Response: &http.Response{StatusCode: statusCode, Header: header}}
}

var _ = Describe("classifyError", func() {
	Context("with a rate-limited response", func() {
		It("is retryable and honors Retry-After", func() {
			header := http.Header{}
			header.Set("Retry-After", "5")
			retryable, retryAfter := classifyError(ghResponse(http.StatusTooManyRequests, header), errors.New("rate limited"))
			Expect(retryable).To(BeTrue())
			Expect(retryAfter.Seconds()).To(Equal(5.0))
		})

		It("is still retryable without a Retry-After header", func() {
			retryable, retryAfter := classifyError(ghResponse(http.StatusTooManyRequests, nil), errors.New("rate limited"))
			Expect(retryable).To(BeTrue())
			Expect(retryAfter.Seconds()).To(Equal(0.0))
		})
	})

	Context("with a server error response", func() {
		It("is retryable", func() {
			retryable, _ := classifyError(ghResponse(http.StatusBadGateway, nil), errors.New("bad gateway"))
			Expect(retryable).To(BeTrue())
		})
	})

	Context("with a client error response", func() {
		It("is not retryable", func() {
			retryable, _ := classifyError(ghResponse(http.StatusNotFound, nil), errors.New("not found"))
			Expect(retryable).To(BeFalse())
		})
	})

	Context("with no HTTP response at all", func() {
		It("treats the failure as a retryable network error", func() {
			retryable, _ := classifyError(nil, errors.New("dial tcp: connection refused"))
			Expect(retryable).To(BeTrue())
		})
	})
})

var _ = Describe("classifyFinal", func() {
	It("returns nil for a nil error", func() {
		Expect(classifyFinal("pbek", "QOwnNotes", nil)).To(BeNil())
	})

	Context("when the GitHub API returned 404", func() {
		It("maps to KindHTTP with a not-found message", func() {
			err := classifyFinal("pbek", "QOwnNotes", &github.ErrorResponse{Response: ghResponse(http.StatusNotFound, nil).Response})
			Expect(apperrors.OfKind(err, apperrors.KindHTTP)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("404"))
		})
	})

	Context("when the GitHub API returned 429", func() {
		It("maps to KindRateLimited", func() {
			err := classifyFinal("pbek", "QOwnNotes", &github.ErrorResponse{Response: ghResponse(http.StatusTooManyRequests, nil).Response})
			Expect(apperrors.OfKind(err, apperrors.KindRateLimited)).To(BeTrue())
		})
	})

	Context("when the GitHub API returned another error status", func() {
		It("maps to KindHTTP", func() {
			err := classifyFinal("pbek", "QOwnNotes", &github.ErrorResponse{Response: ghResponse(http.StatusInternalServerError, nil).Response})
			Expect(apperrors.OfKind(err, apperrors.KindHTTP)).To(BeTrue())
		})
	})

	Context("when the failure never reached the GitHub API", func() {
		It("maps to KindNetwork", func() {
			err := classifyFinal("pbek", "QOwnNotes", errors.New("dial tcp: connection refused"))
			Expect(apperrors.OfKind(err, apperrors.KindNetwork)).To(BeTrue())
		})
	})
})
