package motors_test

import (
	"testing"

	motors "github.com/parkmoor/motors"
	"github.com/stretchr/testify/assert"
)

func TestAccountTypeIsValid(t *testing.T) {
	tests := []struct {
		role     motors.AccountType
		expected bool
	}{
		{motors.RoleClient, true},
		{motors.RoleEmployee, true},
		{motors.RoleAdmin, true},
		{motors.AccountType(""), false},
		{motors.AccountType("superuser"), false},
		{motors.AccountType("Admin"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.IsValid())
		})
	}
}

func TestAccountTypeCanManageInventory(t *testing.T) {
	assert.False(t, motors.RoleClient.CanManageInventory())
	assert.True(t, motors.RoleEmployee.CanManageInventory())
	assert.True(t, motors.RoleAdmin.CanManageInventory())
	assert.False(t, motors.AccountType("visitor").CanManageInventory())
}

func TestAccountTypeIsAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		role     motors.AccountType
		min      motors.AccountType
		expected bool
	}{
		{"client meets client", motors.RoleClient, motors.RoleClient, true},
		{"client below employee", motors.RoleClient, motors.RoleEmployee, false},
		{"client below admin", motors.RoleClient, motors.RoleAdmin, false},
		{"employee meets client", motors.RoleEmployee, motors.RoleClient, true},
		{"employee meets employee", motors.RoleEmployee, motors.RoleEmployee, true},
		{"employee below admin", motors.RoleEmployee, motors.RoleAdmin, false},
		{"admin meets everything", motors.RoleAdmin, motors.RoleAdmin, true},
		{"unknown role never qualifies", motors.AccountType("visitor"), motors.RoleClient, false},
		{"unknown minimum never matches", motors.RoleAdmin, motors.AccountType("visitor"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.IsAtLeast(tt.min))
		})
	}
}

func TestAccountTypeIn(t *testing.T) {
	assert.True(t, motors.RoleEmployee.In(motors.RoleEmployee, motors.RoleAdmin))
	assert.True(t, motors.RoleAdmin.In(motors.RoleEmployee, motors.RoleAdmin))
	assert.False(t, motors.RoleClient.In(motors.RoleEmployee, motors.RoleAdmin))
	assert.False(t, motors.RoleClient.In())
}

func TestParseAccountType(t *testing.T) {
	role, ok := motors.ParseAccountType("employee")
	assert.True(t, ok)
	assert.Equal(t, motors.RoleEmployee, role)

	_, ok = motors.ParseAccountType("root")
	assert.False(t, ok)

	_, ok = motors.ParseAccountType("")
	assert.False(t, ok)
}

func TestAllAccountTypes(t *testing.T) {
	roles := motors.AllAccountTypes()
	assert.Equal(t, []motors.AccountType{
		motors.RoleClient,
		motors.RoleEmployee,
		motors.RoleAdmin,
	}, roles)
}
