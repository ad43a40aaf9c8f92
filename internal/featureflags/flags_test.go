package featureflags

import "testing"

func TestStrictStatusTransitionsFlag(t *testing.T) {
	t.Setenv("FLAG_STRICT_STATUS_TRANSITIONS", "")
	if Load().StrictStatusTransitions {
		t.Fatalf("expected flag off by default")
	}

	for _, v := range []string{"1", "true", "YES", " on "} {
		t.Setenv("FLAG_STRICT_STATUS_TRANSITIONS", v)
		if !Enabled(StrictStatusTransitions) {
			t.Fatalf("expected %q to enable the flag", v)
		}
	}

	t.Setenv("FLAG_STRICT_STATUS_TRANSITIONS", "off")
	if Load().StrictStatusTransitions {
		t.Fatalf("expected off to disable the flag")
	}
}
