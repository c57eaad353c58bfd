package service

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("keyedMutex", func() {
	It("serializes holders of the same key", func() {
		km := newKeyedMutex()

		const workers = 20
		counter := 0
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				unlock := km.Lock("vm-1")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()
		Expect(counter).To(Equal(workers))
	})

	It("does not block holders of different keys", func() {
		km := newKeyedMutex()

		unlockA := km.Lock("vm-a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlockB := km.Lock("vm-b")
			unlockB()
			close(done)
		}()
		Eventually(done).Should(BeClosed())
	})

	It("drops the per-key entry once released", func() {
		km := newKeyedMutex()

		unlock := km.Lock("vm-1")
		unlock()

		km.mu.Lock()
		defer km.mu.Unlock()
		Expect(km.locks).To(BeEmpty())
	})
})
