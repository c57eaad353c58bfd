package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apiv1 "github.com/dcm-project/openstack-service-provider/api/v1"
	"github.com/dcm-project/openstack-service-provider/internal/apierrors"
	"github.com/dcm-project/openstack-service-provider/internal/auth"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

var _ = Describe("APIKey middleware", func() {
	const key = "test-api-key"

	var handler http.Handler

	BeforeEach(func() {
		protected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
		handler = auth.APIKey(key)(protected)
	})

	do := func(apiKey string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/vms", nil)
		if apiKey != "" {
			req.Header.Set(auth.HeaderName, apiKey)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("rejects requests without a key", func() {
		rec := do("")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		var body apiv1.Error
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error).To(Equal(apierrors.CodeAuthentication))
		Expect(body.Message).To(Equal("API key is required"))
		Expect(body.Details).To(HaveKeyWithValue("header", auth.HeaderName))
	})

	It("rejects requests with a wrong key", func() {
		rec := do("wrong-key")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))

		var body apiv1.Error
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Error).To(Equal(apierrors.CodeAuthentication))
		Expect(body.Message).To(Equal("Invalid API key"))
	})

	It("passes matching requests through", func() {
		rec := do(key)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
	})
})
