// Package seed holds the bundled default dataset used on first initialization
// of the store.
package seed

import (
	"time"

	"github.com/librosapp/libreria/internal/domain"
)

var seedTime = time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)

// Books returns the default catalog.
func Books() []domain.Book {
	return []domain.Book{
		{
			ID:          1,
			Title:       "El Principito",
			Author:      "Antoine de Saint-Exupéry",
			Category:    "Clásicos",
			Price:       25.90,
			Stock:       15,
			Description: "Un piloto perdido en el desierto conoce a un pequeño príncipe que viaja de planeta en planeta.",
			Image:       "https://covers.librospequenos.com/el-principito.jpg",
			ISBN:        "978-84-376-0494-7",
			CreatedAt:   seedTime,
		},
		{
			ID:          2,
			Title:       "Donde Viven los Monstruos",
			Author:      "Maurice Sendak",
			Category:    "Ilustrados",
			Price:       19.50,
			Stock:       8,
			Description: "Max navega hasta la tierra de los monstruos y se convierte en su rey por una noche.",
			Image:       "https://covers.librospequenos.com/donde-viven-los-monstruos.jpg",
			ISBN:        "978-84-376-1202-7",
			CreatedAt:   seedTime,
		},
		{
			ID:          3,
			Title:       "La Oruga Muy Hambrienta",
			Author:      "Eric Carle",
			Category:    "Ilustrados",
			Price:       14.90,
			Stock:       20,
			Description: "Una pequeña oruga come y come hasta transformarse en una hermosa mariposa.",
			Image:       "https://covers.librospequenos.com/la-oruga-muy-hambrienta.jpg",
			ISBN:        "978-84-376-2041-1",
			CreatedAt:   seedTime,
		},
		{
			ID:          4,
			Title:       "Matilda",
			Author:      "Roald Dahl",
			Category:    "Novelas",
			Price:       22.00,
			Stock:       12,
			Description: "Una niña extraordinaria con poderes especiales se enfrenta a la terrible directora Trunchbull.",
			Image:       "https://covers.librospequenos.com/matilda.jpg",
			ISBN:        "978-84-376-0873-0",
			CreatedAt:   seedTime,
		},
		{
			ID:          5,
			Title:       "Cuentos de la Selva",
			Author:      "Horacio Quiroga",
			Category:    "Cuentos",
			Price:       16.50,
			Stock:       10,
			Description: "Relatos de animales de la selva misionera escritos para los hijos del autor.",
			Image:       "https://covers.librospequenos.com/cuentos-de-la-selva.jpg",
			ISBN:        "978-84-376-1555-4",
			CreatedAt:   seedTime,
		},
		{
			ID:          6,
			Title:       "El Monstruo de Colores",
			Author:      "Anna Llenas",
			Category:    "Ilustrados",
			Price:       18.90,
			Stock:       0,
			Description: "El monstruo de colores no sabe qué le pasa: se ha hecho un lío con las emociones.",
			Image:       "https://covers.librospequenos.com/el-monstruo-de-colores.jpg",
			ISBN:        "978-84-376-3312-1",
			CreatedAt:   seedTime,
		},
		{
			ID:          7,
			Title:       "Charlie y la Fábrica de Chocolate",
			Author:      "Roald Dahl",
			Category:    "Novelas",
			Price:       21.50,
			Stock:       9,
			Description: "Charlie Bucket encuentra un billete dorado y visita la fábrica del excéntrico Willy Wonka.",
			Image:       "https://covers.librospequenos.com/charlie-fabrica-chocolate.jpg",
			ISBN:        "978-84-376-0921-8",
			CreatedAt:   seedTime,
		},
		{
			ID:          8,
			Title:       "Adivina Cuánto te Quiero",
			Author:      "Sam McBratney",
			Category:    "Ilustrados",
			Price:       13.90,
			Stock:       18,
			Description: "Una liebre pequeña y una liebre grande compiten por demostrar cuánto se quieren.",
			Image:       "https://covers.librospequenos.com/adivina-cuanto-te-quiero.jpg",
			ISBN:        "978-84-376-2788-5",
			CreatedAt:   seedTime,
		},
	}
}

// Users returns the default accounts, including the primary admin.
func Users() []domain.User {
	return []domain.User{
		{
			ID:           1,
			Name:         "Administrador",
			Email:        domain.PrimaryAdminEmail,
			Password:     "admin123",
			Role:         domain.RoleAdmin,
			RegisteredAt: "2025-03-01",
			Active:       true,
		},
		{
			ID:           2,
			Name:         "María García",
			Email:        "maria@example.com",
			Password:     "maria123",
			Role:         domain.RoleUser,
			RegisteredAt: "2025-03-15",
			Active:       true,
		},
		{
			ID:           3,
			Name:         "Juan Pérez",
			Email:        "juan@example.com",
			Password:     "juan123456",
			Role:         domain.RoleUser,
			RegisteredAt: "2025-04-02",
			Active:       true,
		},
	}
}

// InitialRecord builds the record written on first access to an empty store.
func InitialRecord() domain.Record {
	return domain.NewRecord(Books(), Users())
}
