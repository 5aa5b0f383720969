// Package helpers holds the runtime helpers generated getters call by default.
package helpers

import "unsafe"

// probeReadID is the kernel helper number of bpf_probe_read.
const probeReadID = 4

// ProbeRead copies size bytes from src into dst through bpf_probe_read and
// returns 0 on success. It only works inside a loaded BPF program.
func ProbeRead(dst unsafe.Pointer, size uint32, src unsafe.Pointer) int64 {
	addr := uintptr(probeReadID)
	fn := unsafe.Pointer(&addr)
	f := *(*func(unsafe.Pointer, uint32, unsafe.Pointer) int64)(unsafe.Pointer(&fn))
	return f(dst, size, src)
}
