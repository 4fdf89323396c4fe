package id_test

import (
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/forma22-agency/gh-dispatch-relay/common/id"
)

var _ = Describe("NewDeliveryID", func() {
	It("returns distinct numeric identifiers", func() {
		Expect(id.Init(7)).To(Succeed())

		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			deliveryID := id.NewDeliveryID()
			_, err := strconv.ParseInt(deliveryID, 10, 64)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).NotTo(HaveKey(deliveryID))
			seen[deliveryID] = true
		}
	})
})
