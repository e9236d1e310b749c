package middleware

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("log redaction", func() {
	It("masks credentials and contact numbers at any depth", func() {
		// Given
		body := []byte(`{"email":"a@example.com","password":"hunter2","user":{"number":"0812","name":"Ana","refresh_token":"x"}}`)

		// When
		out := filterSensitiveBody(body)

		// Then
		var got map[string]interface{}
		Expect(json.Unmarshal([]byte(out), &got)).To(Succeed())
		Expect(got["email"]).To(Equal("a@example.com"))
		Expect(got["password"]).To(Equal(filtered))
		user := got["user"].(map[string]interface{})
		Expect(user["number"]).To(Equal(filtered))
		Expect(user["refresh_token"]).To(Equal(filtered))
		Expect(user["name"]).To(Equal("Ana"))
	})

	It("never logs a body that is not JSON", func() {
		Expect(filterSensitiveBody([]byte("password=hunter2"))).To(Equal("[unparsed body, 16 bytes]"))
	})

	It("masks authorization headers", func() {
		headers := http.Header{}
		headers.Set("Authorization", "Bearer abc")
		headers.Set("Content-Type", "application/json")

		out := filterSensitiveHeaders(headers)

		Expect(out["Authorization"]).To(Equal(filtered))
		Expect(out["Content-Type"]).To(Equal("application/json"))
	})
})
