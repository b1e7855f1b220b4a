package otel

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pawel-modine/AsanaBot/core/config"
)

var _ = Describe("Setup", func() {
	It("is a no-op without an endpoint", func() {
		t, err := Setup(context.Background(), config.OTelConfig{ServiceName: "asanabot-test"})
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeNil())
		Expect(t.Shutdown(context.Background())).To(Succeed())
	})
})

var _ = Describe("parseHeaders", func() {
	It("splits comma separated pairs and trims whitespace", func() {
		Expect(parseHeaders("authorization=Bearer x, x-team = sync")).To(Equal(map[string]string{
			"authorization": "Bearer x",
			"x-team":        "sync",
		}))
	})

	It("keeps = inside values", func() {
		Expect(parseHeaders("k=a=b")).To(HaveKeyWithValue("k", "a=b"))
	})

	It("skips malformed pairs", func() {
		Expect(parseHeaders("novalue,,k=v")).To(Equal(map[string]string{"k": "v"}))
	})

	It("returns an empty map for an empty string", func() {
		Expect(parseHeaders("")).To(BeEmpty())
	})
})

var _ = Describe("sampler", func() {
	DescribeTable("describes the root sampling decision",
		func(ratio float64, want string) {
			Expect(sampler(ratio).Description()).To(ContainSubstring("root:" + want))
		},
		Entry("full", 1.0, "AlwaysOnSampler"),
		Entry("off", 0.0, "AlwaysOffSampler"),
		Entry("ratio", 0.25, "TraceIDRatioBased{0.25}"),
	)
})
