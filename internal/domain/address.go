package domain

// Address — value object почтового адреса. Сравнивается по значению всех
// полей и не изменяется после создания: агрегаты хранят его копией.
type Address struct {
	Street     string
	City       string
	State      string
	Country    string
	PostalCode string
}

// NewAddress собирает адрес из составных частей.
func NewAddress(street, city, state, country, postalCode string) Address {
	return Address{
		Street:     street,
		City:       city,
		State:      state,
		Country:    country,
		PostalCode: postalCode,
	}
}

// Equals проверяет структурное равенство адресов.
func (a Address) Equals(other Address) bool {
	return a == other
}

// IsZero сообщает, что адрес не заполнен.
func (a Address) IsZero() bool {
	return a == Address{}
}
