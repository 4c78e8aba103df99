package x64

import "golang.org/x/sys/unix"

const lowAddressFlag = unix.MAP_32BIT
