package main

/*
#include <stdint.h>
*/
import "C"

import (
	"fmt"
	"sync/atomic"
)

var last atomic.Uint64

//export get_uint64
func get_uint64() C.uint64_t {
	return 42
}

//export print_uint64
func print_uint64(value C.uint64_t) {
	last.Store(uint64(value))
	fmt.Println(uint64(value))
}

//export last_uint64
func last_uint64() C.uint64_t {
	return C.uint64_t(last.Load())
}

func main() {}
