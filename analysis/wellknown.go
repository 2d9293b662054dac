package analysis

// Dynamic memory entry points: libc, newlib reentrant variants and the
// Itanium mangled c++ operator new / delete (ilp32 and lp64 size_t).
var allocatorNames = []string{
	"malloc",
	"calloc",
	"realloc",
	"reallocarray",
	"free",
	"memalign",
	"aligned_alloc",
	"posix_memalign",
	"valloc",
	"pvalloc",

	"_malloc_r",
	"_calloc_r",
	"_realloc_r",
	"_free_r",
	"_memalign_r",
	"_valloc_r",
	"_pvalloc_r",

	"_Znwj",                // operator new(unsigned int)
	"_Znwm",                // operator new(unsigned long)
	"_Znaj",                // operator new[](unsigned int)
	"_Znam",                // operator new[](unsigned long)
	"_ZnwjRKSt9nothrow_t",  // operator new(unsigned int, std::nothrow_t const&)
	"_ZnwmRKSt9nothrow_t",  // operator new(unsigned long, std::nothrow_t const&)
	"_ZnajRKSt9nothrow_t",  // operator new[](unsigned int, std::nothrow_t const&)
	"_ZnamRKSt9nothrow_t",  // operator new[](unsigned long, std::nothrow_t const&)
	"_ZdlPv",               // operator delete(void*)
	"_ZdaPv",               // operator delete[](void*)
	"_ZdlPvj",              // operator delete(void*, unsigned int)
	"_ZdlPvm",              // operator delete(void*, unsigned long)
	"_ZdaPvj",              // operator delete[](void*, unsigned int)
	"_ZdaPvm",              // operator delete[](void*, unsigned long)
	"_ZdlPvRKSt9nothrow_t", // operator delete(void*, std::nothrow_t const&)
	"_ZdaPvRKSt9nothrow_t", // operator delete[](void*, std::nothrow_t const&)
}

// Software floating point helpers: arm rtabi and libgcc (also used by
// avr-gcc) single / double precision routines.
var softFloatNames = []string{
	"__aeabi_fadd",
	"__aeabi_fsub",
	"__aeabi_frsub",
	"__aeabi_fmul",
	"__aeabi_fdiv",
	"__aeabi_fcmpeq",
	"__aeabi_fcmplt",
	"__aeabi_fcmple",
	"__aeabi_fcmpge",
	"__aeabi_fcmpgt",
	"__aeabi_fcmpun",
	"__aeabi_cfcmpeq",
	"__aeabi_cfcmple",
	"__aeabi_cfrcmple",
	"__aeabi_f2iz",
	"__aeabi_f2uiz",
	"__aeabi_f2lz",
	"__aeabi_f2ulz",
	"__aeabi_i2f",
	"__aeabi_ui2f",
	"__aeabi_l2f",
	"__aeabi_ul2f",
	"__aeabi_f2d",
	"__aeabi_d2f",

	"__aeabi_dadd",
	"__aeabi_dsub",
	"__aeabi_drsub",
	"__aeabi_dmul",
	"__aeabi_ddiv",
	"__aeabi_dcmpeq",
	"__aeabi_dcmplt",
	"__aeabi_dcmple",
	"__aeabi_dcmpge",
	"__aeabi_dcmpgt",
	"__aeabi_dcmpun",
	"__aeabi_cdcmpeq",
	"__aeabi_cdcmple",
	"__aeabi_cdrcmple",
	"__aeabi_d2iz",
	"__aeabi_d2uiz",
	"__aeabi_d2lz",
	"__aeabi_d2ulz",
	"__aeabi_i2d",
	"__aeabi_ui2d",
	"__aeabi_l2d",
	"__aeabi_ul2d",

	"__addsf3",
	"__subsf3",
	"__mulsf3",
	"__divsf3",
	"__negsf2",
	"__eqsf2",
	"__nesf2",
	"__gesf2",
	"__gtsf2",
	"__lesf2",
	"__ltsf2",
	"__unordsf2",
	"__fixsfsi",
	"__fixunssfsi",
	"__fixsfdi",
	"__fixunssfdi",
	"__floatsisf",
	"__floatunsisf",
	"__floatdisf",
	"__floatundisf",
	"__extendsfdf2",
	"__truncdfsf2",

	"__adddf3",
	"__subdf3",
	"__muldf3",
	"__divdf3",
	"__negdf2",
	"__eqdf2",
	"__nedf2",
	"__gedf2",
	"__gtdf2",
	"__ledf2",
	"__ltdf2",
	"__unorddf2",
	"__fixdfsi",
	"__fixunsdfsi",
	"__fixdfdi",
	"__fixunsdfdi",
	"__floatsidf",
	"__floatunsidf",
	"__floatdidf",
	"__floatundidf",
}

type nameSet map[string]struct{}

func newNameSet(groups ...[]string) nameSet {
	set := nameSet{}
	for _, group := range groups {
		for _, name := range group {
			set[name] = struct{}{}
		}
	}
	return set
}

func (set nameSet) contains(name string) bool {
	_, ok := set[name]
	return ok
}
