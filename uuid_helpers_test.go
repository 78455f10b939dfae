package motors_test

import (
	"testing"

	"github.com/google/uuid"
	motors "github.com/parkmoor/motors"
	"github.com/stretchr/testify/assert"
)

func TestHasAccountUUID(t *testing.T) {
	t.Run("uuid subject", func(t *testing.T) {
		session := &motors.SessionObject{
			AccountID: uuid.NewString(),
		}

		assert.True(t, motors.HasAccountUUID(session))
	})

	t.Run("non uuid subject", func(t *testing.T) {
		session := &motors.SessionObject{
			AccountID: "legacy|1234567890",
		}

		assert.False(t, motors.HasAccountUUID(session))
	})

	t.Run("nil session", func(t *testing.T) {
		assert.False(t, motors.HasAccountUUID(nil))
	})
}
