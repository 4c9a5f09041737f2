// Package suite loads and validates WASI conformance suites.
//
// # Suite Format
//
// Suites are YAML files with the following structure:
//
//	name: wasi
//	cases:
//	  - name: mandelbrot
//	    wasm: ./benchmark/mandelbrot/mandel.wasm
//	    args: ["128", "4e5"]
//	    expect_sha1: 37091e7ce96adeea88f079ad95d239a651308a56
//	  - name: C-Ray
//	    wasm: ./benchmark/c-ray/c-ray.wasm
//	    stdin: ./benchmark/c-ray/scene
//	    args: [-s, 128x128]
//	    expect_sha1: 90f86845ae227466a06ea8db06e753af4838f2fa
//	  - name: Self-hosting
//	    wasm: ./self-hosting/wasm3-fib.wasm
//	    requires: [./self-hosting/wasm3-fib.wasm]
//	    expect_pattern: "wasm3 on WASM*Result: 832040*Elapsed: * ms*"
//
// The same structure may be written in CUE (.cue files); CUE suites are
// unified with a closed schema before decoding.
//
// Every case declares exactly one of expect_pattern or expect_sha1. A case
// with neither, or with both, is rejected at load time. Unknown fields are
// rejected too, so a typo cannot silently turn a check off.
//
// # Skipping
//
// skip: true removes a case from the run. requires lists files that must
// exist; when one is missing the case is skipped rather than failed, which
// suits optional fixtures such as the self-hosting build.
//
// # Usage
//
//	s, err := suite.Load("testdata/wasi.yaml", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s = s.Filter("mandelbrot*")
package suite
