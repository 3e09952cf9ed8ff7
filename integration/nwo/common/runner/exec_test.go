/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hyperledger-labs/fabnet/integration/nwo/api"
	"github.com/hyperledger-labs/fabnet/integration/nwo/common/runner"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
)

var _ = Describe("ExecRunner", func() {
	var (
		r   *runner.ExecRunner
		ctx context.Context
	)

	BeforeEach(func() {
		if runtime.GOOS == "windows" {
			Skip("requires a POSIX shell")
		}
		r = runner.New()
		ctx = context.Background()
	})

	sh := func(script string) api.Spec {
		return api.Spec{Name: "sh", Path: "sh", Args: []string{"-c", script}, Timeout: 10 * time.Second}
	}

	It("captures stdout, stderr and a zero exit code", func() {
		res, err := r.Run(ctx, sh("echo out; echo err >&2"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Success()).To(BeTrue())
		Expect(string(res.Stdout)).To(Equal("out\n"))
		Expect(string(res.Stderr)).To(Equal("err\n"))
	})

	It("reports a non-zero exit code without an error", func() {
		res, err := r.Run(ctx, sh("echo boom >&2; exit 3"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.ExitCode).To(Equal(3))
		Expect(res.Success()).To(BeFalse())
		Expect(res.Output()).To(ContainSubstring("boom"))
	})

	It("passes environment overrides and the working directory", func() {
		dir, err := os.MkdirTemp("", "runner")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		dir, err = filepath.EvalSymlinks(dir)
		Expect(err).NotTo(HaveOccurred())

		spec := sh(`echo "$CORE_PEER_ID $CORE_PEER_LOCALMSPID"; pwd`)
		spec.Env = map[string]string{"CORE_PEER_ID": "cli", "CORE_PEER_LOCALMSPID": "Org1MSP"}
		spec.Dir = dir

		res, err := r.Run(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(res.Stdout)).To(Equal("cli Org1MSP\n" + dir + "\n"))
	})

	It("fails with ErrExternalToolNotFound for a missing binary", func() {
		_, err := r.Run(ctx, api.Spec{Name: "missing", Path: "fabnet-no-such-tool"})
		Expect(err).To(MatchError(api.ErrExternalToolNotFound))
	})

	It("kills the process group on timeout", func() {
		spec := sh("sleep 30 & sleep 30; wait")
		spec.Timeout = 200 * time.Millisecond

		start := time.Now()
		res, err := r.Run(ctx, spec)
		Expect(err).To(MatchError(api.ErrTimeout))
		Expect(res).NotTo(BeNil())
		Expect(res.Success()).To(BeFalse())
		Expect(time.Since(start)).To(BeNumerically("<", 10*time.Second))
	})

	It("does not start a process once the context is done", func() {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		dir, err := os.MkdirTemp("", "runner")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)
		marker := filepath.Join(dir, "started")

		_, err = r.Run(canceled, sh("touch "+marker))
		Expect(err).To(MatchError(context.Canceled))
		Expect(marker).NotTo(BeAnExistingFile())
	})

	It("lets a running process finish when the context is canceled", func() {
		running, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		res, err := r.Run(running, sh("sleep 0.3; echo done"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(res.Stdout)).To(Equal("done\n"))
	})

	It("streams prefixed output", func() {
		buffer := gbytes.NewBuffer()
		r.Stream = buffer
		spec := sh("echo streamed")
		spec.Name = "peer0.org1"
		_, err := r.Run(ctx, spec)
		Expect(err).NotTo(HaveOccurred())
		Expect(buffer).To(gbytes.Say(`\[peer0.org1\].* streamed`))
	})
})
