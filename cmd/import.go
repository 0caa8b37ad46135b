package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wardrounds/rounds-cli/internal/auth"
	"github.com/wardrounds/rounds-cli/internal/model"
	"github.com/wardrounds/rounds-cli/internal/store"
)

var importFilePath string

// seedFile is the shape of a ward bootstrap file: accounts for the team and
// the current census. Passwords are plaintext in the file and hashed on import.
type seedFile struct {
	Users []struct {
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		Role        string `yaml:"role"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"users"`
	Patients []struct {
		HN        string `yaml:"hn"`
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
		Age       int    `yaml:"age"`
		Sex       string `yaml:"sex"`
		Ward      string `yaml:"ward"`
		Bed       string `yaml:"bed"`
		Diagnosis string `yaml:"diagnosis"`
	} `yaml:"patients"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import users and patients from a YAML seed file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(importFilePath)
		if err != nil {
			return eris.Wrap(err, "read seed file")
		}
		var seed seedFile
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			return eris.Wrap(err, "parse seed file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var usersCreated, patientsCreated int
		for _, u := range seed.Users {
			if u.Username == "" || u.Password == "" {
				return eris.Errorf("user entry missing username or password")
			}
			role := model.Role(u.Role)
			switch role {
			case model.RoleResident, model.RoleAttending, model.RoleAdmin:
			case "":
				role = model.RoleResident
			default:
				return eris.Errorf("unknown role %q for user %q", u.Role, u.Username)
			}

			if _, err := st.GetUserByUsername(ctx, u.Username); err == nil {
				zap.L().Warn("user already exists, skipping", zap.String("username", u.Username))
				continue
			} else if !eris.Is(err, store.ErrNotFound) {
				return err
			}

			hash, err := auth.HashPassword(u.Password)
			if err != nil {
				return err
			}
			if err := st.CreateUser(ctx, &model.User{
				Username:     u.Username,
				DisplayName:  u.DisplayName,
				Role:         role,
				PasswordHash: hash,
			}); err != nil {
				return eris.Wrapf(err, "create user %q", u.Username)
			}
			usersCreated++
		}

		for _, p := range seed.Patients {
			if p.HN == "" {
				return eris.New("patient entry missing hn")
			}
			if _, err := st.GetPatientByHN(ctx, p.HN); err == nil {
				zap.L().Warn("patient already exists, skipping", zap.String("hn", p.HN))
				continue
			} else if !eris.Is(err, store.ErrNotFound) {
				return err
			}

			if err := st.CreatePatient(ctx, &model.Patient{
				HN:        p.HN,
				FirstName: p.FirstName,
				LastName:  p.LastName,
				Age:       p.Age,
				Sex:       p.Sex,
				Ward:      p.Ward,
				Bed:       p.Bed,
				Diagnosis: p.Diagnosis,
			}); err != nil {
				return eris.Wrapf(err, "create patient %q", p.HN)
			}
			patientsCreated++
		}

		zap.L().Info("import complete",
			zap.Int("users", usersCreated),
			zap.Int("patients", patientsCreated),
			zap.String("file", importFilePath),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFilePath, "file", "", "path to YAML seed file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
