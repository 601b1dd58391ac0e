//go:build windows

package util

import (
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var getConsoleWindow = windows.NewLazySystemDLL("kernel32.dll").NewProc("GetConsoleWindow")

// IsRunFromGUI reports whether keyflow has no console of its own or was
// double-clicked in Explorer. Starting from a shell gives neither.
func IsRunFromGUI() bool {
	if hwnd, _, _ := getConsoleWindow.Call(); hwnd == 0 {
		return true
	}
	return strings.EqualFold(parentExe(), "explorer.exe")
}

// parentExe returns the executable name of the parent process, or "" if the
// process table cannot be read.
func parentExe() string {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snap)

	type proc struct {
		parent uint32
		exe    string
	}
	procs := make(map[uint32]proc)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	for err = windows.Process32First(snap, &pe); err == nil; err = windows.Process32Next(snap, &pe) {
		procs[pe.ProcessID] = proc{parent: pe.ParentProcessID, exe: windows.UTF16ToString(pe.ExeFile[:])}
	}

	self, ok := procs[windows.GetCurrentProcessId()]
	if !ok {
		return ""
	}
	return procs[self.parent].exe
}
